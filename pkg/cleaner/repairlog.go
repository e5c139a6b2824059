// pkg/cleaner/repairlog.go
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// RepairSink persists the repair operations applied during a run.
type RepairSink interface {
	Record(ctx context.Context, ops []model.RepairOperation) error
}

// SQLRepairSink writes repair operations to the order_repair_log table in
// the canonical database, batch-inserted in a single transaction.
type SQLRepairSink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSQLRepairSink creates the sink and ensures the tracking table exists
func NewSQLRepairSink(db *sqlx.DB, logger *zap.Logger) (*SQLRepairSink, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	sink := &SQLRepairSink{
		db:     db,
		logger: logger,
	}

	if err := sink.setupRepairTable(); err != nil {
		return nil, fmt.Errorf("failed to setup repair log table: %w", err)
	}

	return sink, nil
}

// setupRepairTable ensures the order_repair_log tracking table exists
func (s *SQLRepairSink) setupRepairTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS order_repair_log (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			order_id BIGINT NOT NULL,
			field TEXT NOT NULL,
			original_value TEXT,
			new_value TEXT NOT NULL,
			repair_kind TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create tracking table: %w", err)
	}

	s.logger.Info("Ensured order_repair_log table exists")
	return nil
}

// Record batch inserts repair operations inside one transaction
func (s *SQLRepairSink) Record(ctx context.Context, ops []model.RepairOperation) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback repair log transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_repair_log
		(run_id, order_id, field, original_value, new_value, repair_kind, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		if _, err = stmt.ExecContext(ctx,
			op.RunID,
			op.OrderID,
			op.Field,
			op.OriginalValue,
			op.NewValue,
			op.Kind,
			op.AppliedAt,
		); err != nil {
			return fmt.Errorf("failed to insert repair operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Recorded repair operations", zap.Int("count", len(ops)))
	return nil
}

// MemoryRepairSink accumulates repair operations in memory. It backs tests
// and store drivers that have no repair table of their own.
type MemoryRepairSink struct {
	mu  sync.Mutex
	ops []model.RepairOperation
}

// NewMemoryRepairSink creates an empty in-memory sink
func NewMemoryRepairSink() *MemoryRepairSink {
	return &MemoryRepairSink{}
}

// Record appends the operations
func (s *MemoryRepairSink) Record(_ context.Context, ops []model.RepairOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, ops...)
	return nil
}

// Operations returns a copy of every recorded operation
func (s *MemoryRepairSink) Operations() []model.RepairOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RepairOperation, len(s.ops))
	copy(out, s.ops)
	return out
}
