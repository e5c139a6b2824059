// pkg/store/snowflake.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// SnowflakeRawStore reads raw order records from a Snowflake staging table.
// Snowflake is a raw source only; the canonical dataset never lives there.
type SnowflakeRawStore struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// NewSnowflakeRawStore connects to Snowflake and returns the raw store
func NewSnowflakeRawStore(ctx context.Context, cfg *config.SnowflakeConfig, table string) (*SnowflakeRawStore, error) {
	logger := zap.L().Named("snowflake-raw-store")

	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("warehouse", cfg.Warehouse))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)

	if cfg.QueryTimeout > 0 {
		timeoutSeconds := int(cfg.QueryTimeout.Seconds())
		if _, err := db.ExecContext(ctx, fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d", timeoutSeconds)); err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	LogConnectionStats(logger, cfg.Database, db)

	return &SnowflakeRawStore{
		db:     db,
		table:  table,
		logger: logger,
	}, nil
}

// EnsureSchema creates the staging table if missing
func (s *SnowflakeRawStore) EnsureSchema(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ORDER_ID NUMBER PRIMARY KEY,
			CUSTOMER_NAME VARCHAR,
			ORDER_DATE VARCHAR,
			PRODUCT VARCHAR,
			QUANTITY VARCHAR,
			PRICE VARCHAR
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create staging table %s: %w", s.table, err)
	}

	s.logger.Info("Ensured staging table exists", zap.String("table", s.table))
	return nil
}

// InsertBatch writes raw records inside one transaction
func (s *SnowflakeRawStore) InsertBatch(ctx context.Context, records []model.RawOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback staging insert transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (ORDER_ID, CUSTOMER_NAME, ORDER_DATE, PRODUCT, QUANTITY, PRICE)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		row := newRawRow(rec)
		if _, err = stmt.ExecContext(ctx,
			row.OrderID,
			row.CustomerName,
			row.OrderDate,
			row.Product,
			row.Quantity,
			row.Price,
		); err != nil {
			return fmt.Errorf("failed to insert raw order %d: %w", rec.OrderID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Inserted raw orders",
		zap.String("table", s.table),
		zap.Int("count", len(records)))
	return nil
}

// ScanAll materializes the full raw batch ordered by order_id
func (s *SnowflakeRawStore) ScanAll(ctx context.Context) ([]model.RawOrderRecord, error) {
	query := fmt.Sprintf(`
		SELECT ORDER_ID, CUSTOMER_NAME, ORDER_DATE, PRODUCT, QUANTITY, PRICE
		FROM %s
		ORDER BY ORDER_ID
	`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan staging table: %w", err)
	}
	defer rows.Close()

	var records []model.RawOrderRecord
	for rows.Next() {
		var row rawRow
		if err := rows.Scan(
			&row.OrderID,
			&row.CustomerName,
			&row.OrderDate,
			&row.Product,
			&row.Quantity,
			&row.Price,
		); err != nil {
			return nil, fmt.Errorf("failed to scan raw order row: %w", err)
		}
		records = append(records, row.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raw order rows: %w", err)
	}

	s.logger.Debug("Scanned raw orders",
		zap.String("table", s.table),
		zap.Int("count", len(records)))
	return records, nil
}

// DeleteByKey removes one raw record
func (s *SnowflakeRawStore) DeleteByKey(ctx context.Context, orderID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE ORDER_ID = ?", s.table)
	if _, err := s.db.ExecContext(ctx, query, orderID); err != nil {
		return fmt.Errorf("failed to delete raw order %d: %w", orderID, err)
	}
	return nil
}

// Count returns the number of staged records
func (s *SnowflakeRawStore) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count staged orders: %w", err)
	}
	return count, nil
}

// Close releases the connection pool
func (s *SnowflakeRawStore) Close() error {
	s.logger.Info("Closing Snowflake connection")
	return s.db.Close()
}
