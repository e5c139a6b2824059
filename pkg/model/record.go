// pkg/model/record.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical wire format for order dates (year-month-day)
const DateLayout = "2006-01-02"

// PriceScale is the fixed fractional precision for canonical prices
const PriceScale = 2

// RawOrderRecord is an order record in its as-extracted, untyped form.
// Every text field is nullable because the raw stores surface NULLs;
// order_id is the source-assigned unique key and is always present.
type RawOrderRecord struct {
	OrderID      int64   `db:"order_id" json:"order_id"`
	CustomerName *string `db:"customer_name" json:"customer_name"` // may be absent
	OrderDate    *string `db:"order_date" json:"order_date"`       // free-form text, "-" or "/" separators
	Product      *string `db:"product" json:"product"`
	Quantity     *string `db:"quantity" json:"quantity"` // may be absent, negative or non-numeric
	Price        *string `db:"price" json:"price"`       // may be non-numeric
}

// CleanOrderRecord is a fully validated, typed order record eligible for
// canonical storage and reporting.
type CleanOrderRecord struct {
	OrderID      int64           `db:"order_id" json:"order_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	OrderDate    time.Time       `db:"order_date" json:"order_date"`
	Product      string          `db:"product" json:"product"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	Price        decimal.Decimal `db:"price" json:"price"`
}

// DuplicateKey is the tuple of cleaned fields (excluding order_id) used to
// judge two records as the same order. It is comparable so it can key a map.
type DuplicateKey struct {
	CustomerName string
	OrderDate    string // canonical YYYY-MM-DD text
	Product      string
	Quantity     int64
	Price        string // fixed two-decimal text
}

// DuplicateKey derives the record's duplicate key from its cleaned values.
// Formatting differences in the raw input never reach this tuple.
func (r CleanOrderRecord) DuplicateKey() DuplicateKey {
	return DuplicateKey{
		CustomerName: r.CustomerName,
		OrderDate:    r.OrderDate.Format(DateLayout),
		Product:      r.Product,
		Quantity:     r.Quantity,
		Price:        r.Price.StringFixed(PriceScale),
	}
}

// StringValue dereferences a nullable text field, mapping nil to ""
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, for building raw records in tests and seeds
func StringPtr(s string) *string {
	return &s
}
