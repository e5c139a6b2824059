// pkg/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// ErrDuplicateKey is returned when an insert collides with an existing
// order_id primary key.
var ErrDuplicateKey = errors.New("order_id already exists")

// RawStore holds order records in their as-extracted form. The primary key
// is order_id; every other column is free text that may be absent.
type RawStore interface {
	// EnsureSchema creates the backing table or keyspace if missing
	EnsureSchema(ctx context.Context) error

	// InsertBatch writes raw records, used by seeding and backfills
	InsertBatch(ctx context.Context, records []model.RawOrderRecord) error

	// ScanAll materializes the full raw batch ordered by order_id
	ScanAll(ctx context.Context) ([]model.RawOrderRecord, error)

	// DeleteByKey removes one record, used when duplicate purging is enabled
	DeleteByKey(ctx context.Context, orderID int64) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)

	// Close releases the backend
	Close() error
}

// CanonicalStore holds fully validated order records. Implementations must
// treat order_id as a primary key and report reinsertion of an existing key
// with ErrDuplicateKey.
type CanonicalStore interface {
	EnsureSchema(ctx context.Context) error
	BulkInsert(ctx context.Context, records []model.CleanOrderRecord) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// ConnStats contains standardized connection statistics
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
}

// GetConnectionStats returns connection pool statistics for logging
func GetConnectionStats(db *sql.DB) ConnStats {
	stats := db.Stats()
	return ConnStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		MaxOpenConns:    stats.MaxOpenConnections,
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := GetConnectionStats(db)
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConns),
	)
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}
