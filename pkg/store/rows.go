// pkg/store/rows.go
package store

import (
	"database/sql"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// rawRow mirrors the raw order table. Every text column is nullable because
// the extract promises nothing beyond the primary key.
type rawRow struct {
	OrderID      int64          `db:"order_id"`
	CustomerName sql.NullString `db:"customer_name"`
	OrderDate    sql.NullString `db:"order_date"`
	Product      sql.NullString `db:"product"`
	Quantity     sql.NullString `db:"quantity"`
	Price        sql.NullString `db:"price"`
}

// toRecord converts a scanned row into the model type
func (r rawRow) toRecord() model.RawOrderRecord {
	return model.RawOrderRecord{
		OrderID:      r.OrderID,
		CustomerName: fromNullString(r.CustomerName),
		OrderDate:    fromNullString(r.OrderDate),
		Product:      fromNullString(r.Product),
		Quantity:     fromNullString(r.Quantity),
		Price:        fromNullString(r.Price),
	}
}

// newRawRow converts a model record into its writable shape
func newRawRow(rec model.RawOrderRecord) rawRow {
	return rawRow{
		OrderID:      rec.OrderID,
		CustomerName: toNullString(rec.CustomerName),
		OrderDate:    toNullString(rec.OrderDate),
		Product:      toNullString(rec.Product),
		Quantity:     toNullString(rec.Quantity),
		Price:        toNullString(rec.Price),
	}
}

// Helper functions

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
