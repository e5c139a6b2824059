// pkg/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// uniqueViolation is the PostgreSQL error code for primary key collisions
const uniqueViolation = "23505"

// batchSize is the maximum number of rows per INSERT statement
const batchSize = 500

// PostgresRawStore keeps raw order records in a PostgreSQL table.
type PostgresRawStore struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// NewPostgresRawStore connects to PostgreSQL and returns the raw store
func NewPostgresRawStore(ctx context.Context, cfg *config.PostgresConfig, table string) (*PostgresRawStore, error) {
	db, logger, err := openPostgres(ctx, cfg, "postgres-raw-store")
	if err != nil {
		return nil, err
	}

	return &PostgresRawStore{
		db:     db,
		table:  table,
		logger: logger,
	}, nil
}

// EnsureSchema creates the raw order table if missing. Every column except
// the key is plain text: the raw store never judges its contents.
func (s *PostgresRawStore) EnsureSchema(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			order_id BIGINT PRIMARY KEY,
			customer_name TEXT,
			order_date TEXT,
			product TEXT,
			quantity TEXT,
			price TEXT
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create raw table %s: %w", s.table, err)
	}

	s.logger.Info("Ensured raw order table exists", zap.String("table", s.table))
	return nil
}

// InsertBatch writes raw records inside one transaction
func (s *PostgresRawStore) InsertBatch(ctx context.Context, records []model.RawOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback raw insert transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (order_id, customer_name, order_date, product, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
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
			if isUniqueViolation(err) {
				err = fmt.Errorf("raw order %d: %w", rec.OrderID, ErrDuplicateKey)
				return err
			}
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
func (s *PostgresRawStore) ScanAll(ctx context.Context) ([]model.RawOrderRecord, error) {
	query := fmt.Sprintf(`
		SELECT order_id, customer_name, order_date, product, quantity, price
		FROM %s
		ORDER BY order_id
	`, s.table)

	var rows []rawRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to scan raw orders: %w", err)
	}

	records := make([]model.RawOrderRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}

	s.logger.Debug("Scanned raw orders",
		zap.String("table", s.table),
		zap.Int("count", len(records)))
	return records, nil
}

// DeleteByKey removes one raw record
func (s *PostgresRawStore) DeleteByKey(ctx context.Context, orderID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE order_id = $1", s.table)
	if _, err := s.db.ExecContext(ctx, query, orderID); err != nil {
		return fmt.Errorf("failed to delete raw order %d: %w", orderID, err)
	}
	return nil
}

// Count returns the number of raw records
func (s *PostgresRawStore) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count raw orders: %w", err)
	}
	return count, nil
}

// Close releases the connection pool
func (s *PostgresRawStore) Close() error {
	s.logger.Info("Closing PostgreSQL raw store connection")
	return s.db.Close()
}

// PostgresCanonicalStore keeps validated order records in a typed,
// constrained PostgreSQL table.
type PostgresCanonicalStore struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// NewPostgresCanonicalStore connects to PostgreSQL and returns the canonical store
func NewPostgresCanonicalStore(ctx context.Context, cfg *config.PostgresConfig, table string) (*PostgresCanonicalStore, error) {
	db, logger, err := openPostgres(ctx, cfg, "postgres-canonical-store")
	if err != nil {
		return nil, err
	}

	return &PostgresCanonicalStore{
		db:     db,
		table:  table,
		logger: logger,
	}, nil
}

// DB exposes the underlying pool so the repair log can share it
func (s *PostgresCanonicalStore) DB() *sqlx.DB {
	return s.db
}

// EnsureSchema creates the canonical table if missing. The column constraints
// restate what the pipeline enforces, so bad rows cannot arrive through a
// side door either.
func (s *PostgresCanonicalStore) EnsureSchema(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			order_id BIGINT PRIMARY KEY,
			customer_name TEXT NOT NULL,
			order_date DATE NOT NULL,
			product TEXT NOT NULL,
			quantity BIGINT NOT NULL CHECK (quantity >= 0),
			price NUMERIC(12,2) NOT NULL CHECK (price >= 0)
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create canonical table %s: %w", s.table, err)
	}

	s.logger.Info("Ensured canonical order table exists", zap.String("table", s.table))
	return nil
}

// BulkInsert writes canonical records in batched multi-row statements inside
// one transaction. Either the whole batch lands or none of it does.
func (s *PostgresCanonicalStore) BulkInsert(ctx context.Context, records []model.CleanOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	columns := []string{"order_id", "customer_name", "order_date", "product", "quantity", "price"}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback bulk insert transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(columns))

		for i, rec := range batch {
			rowPlaceholders := make([]string, len(columns))
			for j := range columns {
				rowPlaceholders[j] = fmt.Sprintf("$%d", i*len(columns)+j+1)
			}
			placeholders[i] = fmt.Sprintf("(%s)", strings.Join(rowPlaceholders, ", "))

			args = append(args,
				rec.OrderID,
				rec.CustomerName,
				rec.OrderDate.Format(model.DateLayout),
				rec.Product,
				rec.Quantity,
				rec.Price.StringFixed(model.PriceScale),
			)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			s.table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "))

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				err = fmt.Errorf("bulk insert into %s: %w", s.table, ErrDuplicateKey)
				return err
			}
			return fmt.Errorf("bulk insert into %s failed: %w", s.table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Inserted canonical orders",
		zap.String("table", s.table),
		zap.Int("count", len(records)))
	return nil
}

// Count returns the number of canonical records
func (s *PostgresCanonicalStore) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count canonical orders: %w", err)
	}
	return count, nil
}

// Close releases the connection pool
func (s *PostgresCanonicalStore) Close() error {
	s.logger.Info("Closing PostgreSQL canonical store connection")
	return s.db.Close()
}

// openPostgres opens and verifies a PostgreSQL connection pool
func openPostgres(ctx context.Context, cfg *config.PostgresConfig, name string) (*sqlx.DB, *zap.Logger, error) {
	logger := zap.L().Named(name)

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(db.DB, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)

	if cfg.StatementTimeout > 0 {
		timeoutMs := cfg.StatementTimeout.Milliseconds()
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET statement_timeout = %d", timeoutMs)); err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return db, logger, nil
}

// isUniqueViolation reports whether the error is a primary key collision
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
