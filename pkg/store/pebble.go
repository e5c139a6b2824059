// pkg/store/pebble.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// orderKey renders an order_id as a fixed-width hex key so iteration order
// matches numeric order.
func orderKey(orderID int64) []byte {
	return []byte(fmt.Sprintf("%016x", uint64(orderID)))
}

// openPebble opens one keyspace directory under the configured base path.
// Raw, canonical and repair-log data each get their own directory, so two
// stores never contend for the same lock.
func openPebble(cfg *config.PebbleConfig, keyspace string) (*pebble.DB, error) {
	dir := filepath.Join(cfg.Path, keyspace)
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open %s: %w", dir, err)
	}
	return db, nil
}

// PebbleRawStore keeps raw order records in an embedded Pebble keyspace,
// one JSON value per order_id.
type PebbleRawStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// NewPebbleRawStore opens the raw keyspace
func NewPebbleRawStore(cfg *config.PebbleConfig, keyspace string) (*PebbleRawStore, error) {
	db, err := openPebble(cfg, keyspace)
	if err != nil {
		return nil, err
	}

	logger := zap.L().Named("pebble-raw-store")
	logger.Info("Opened raw keyspace",
		zap.String("path", cfg.Path),
		zap.String("keyspace", keyspace))

	return &PebbleRawStore{db: db, logger: logger}, nil
}

// EnsureSchema is a no-op: opening the keyspace created it
func (s *PebbleRawStore) EnsureSchema(_ context.Context) error {
	return nil
}

// InsertBatch writes raw records in one batch. Reseeding an existing key
// overwrites it: the raw store carries whatever the extract last delivered.
func (s *PebbleRawStore) InsertBatch(_ context.Context, records []model.RawOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode raw order %d: %w", rec.OrderID, err)
		}
		if err := batch.Set(orderKey(rec.OrderID), value, nil); err != nil {
			return fmt.Errorf("failed to stage raw order %d: %w", rec.OrderID, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit raw batch: %w", err)
	}

	s.logger.Info("Inserted raw orders", zap.Int("count", len(records)))
	return nil
}

// ScanAll materializes the full raw batch in key order, which is order_id order
func (s *PebbleRawStore) ScanAll(_ context.Context) ([]model.RawOrderRecord, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw iterator: %w", err)
	}
	defer it.Close()

	var records []model.RawOrderRecord
	for it.First(); it.Valid(); it.Next() {
		value := append([]byte(nil), it.Value()...)
		var rec model.RawOrderRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode raw order at key %q: %w", it.Key(), err)
		}
		records = append(records, rec)
	}

	s.logger.Debug("Scanned raw orders", zap.Int("count", len(records)))
	return records, nil
}

// DeleteByKey removes one raw record
func (s *PebbleRawStore) DeleteByKey(_ context.Context, orderID int64) error {
	if err := s.db.Delete(orderKey(orderID), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete raw order %d: %w", orderID, err)
	}
	return nil
}

// Count returns the number of raw records
func (s *PebbleRawStore) Count(_ context.Context) (int64, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open raw iterator: %w", err)
	}
	defer it.Close()

	var count int64
	for it.First(); it.Valid(); it.Next() {
		count++
	}
	return count, nil
}

// Close releases the keyspace
func (s *PebbleRawStore) Close() error {
	s.logger.Info("Closing raw keyspace")
	return s.db.Close()
}

// PebbleCanonicalStore keeps validated order records in an embedded Pebble
// keyspace. order_id acts as the primary key: reinserting an existing key
// fails with ErrDuplicateKey.
type PebbleCanonicalStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// NewPebbleCanonicalStore opens the canonical keyspace
func NewPebbleCanonicalStore(cfg *config.PebbleConfig, keyspace string) (*PebbleCanonicalStore, error) {
	db, err := openPebble(cfg, keyspace)
	if err != nil {
		return nil, err
	}

	logger := zap.L().Named("pebble-canonical-store")
	logger.Info("Opened canonical keyspace",
		zap.String("path", cfg.Path),
		zap.String("keyspace", keyspace))

	return &PebbleCanonicalStore{db: db, logger: logger}, nil
}

// EnsureSchema is a no-op: opening the keyspace created it
func (s *PebbleCanonicalStore) EnsureSchema(_ context.Context) error {
	return nil
}

// BulkInsert writes canonical records in one batch after checking every key
// against the keyspace and the batch itself, so a collision rejects the
// whole batch before anything lands.
func (s *PebbleCanonicalStore) BulkInsert(_ context.Context, records []model.CleanOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.OrderID]; dup {
			return fmt.Errorf("canonical order %d: %w", rec.OrderID, ErrDuplicateKey)
		}
		seen[rec.OrderID] = struct{}{}

		_, closer, err := s.db.Get(orderKey(rec.OrderID))
		if err == nil {
			_ = closer.Close()
			return fmt.Errorf("canonical order %d: %w", rec.OrderID, ErrDuplicateKey)
		}
		if err != pebble.ErrNotFound {
			return fmt.Errorf("failed to probe canonical order %d: %w", rec.OrderID, err)
		}
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode canonical order %d: %w", rec.OrderID, err)
		}
		if err := batch.Set(orderKey(rec.OrderID), value, nil); err != nil {
			return fmt.Errorf("failed to stage canonical order %d: %w", rec.OrderID, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit canonical batch: %w", err)
	}

	s.logger.Info("Inserted canonical orders", zap.Int("count", len(records)))
	return nil
}

// Records materializes every canonical record in key order
func (s *PebbleCanonicalStore) Records(_ context.Context) ([]model.CleanOrderRecord, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open canonical iterator: %w", err)
	}
	defer it.Close()

	var records []model.CleanOrderRecord
	for it.First(); it.Valid(); it.Next() {
		value := append([]byte(nil), it.Value()...)
		var rec model.CleanOrderRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode canonical order at key %q: %w", it.Key(), err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Count returns the number of canonical records
func (s *PebbleCanonicalStore) Count(_ context.Context) (int64, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open canonical iterator: %w", err)
	}
	defer it.Close()

	var count int64
	for it.First(); it.Valid(); it.Next() {
		count++
	}
	return count, nil
}

// Close releases the keyspace
func (s *PebbleCanonicalStore) Close() error {
	s.logger.Info("Closing canonical keyspace")
	return s.db.Close()
}

// PebbleRepairSink records repair operations in an embedded keyspace, one
// JSON value per operation keyed by run and sequence.
type PebbleRepairSink struct {
	db     *pebble.DB
	logger *zap.Logger
}

// NewPebbleRepairSink opens the repair-log keyspace
func NewPebbleRepairSink(cfg *config.PebbleConfig) (*PebbleRepairSink, error) {
	db, err := openPebble(cfg, "order_repair_log")
	if err != nil {
		return nil, err
	}

	return &PebbleRepairSink{
		db:     db,
		logger: zap.L().Named("pebble-repair-log"),
	}, nil
}

// Record writes the operations in one batch
func (s *PebbleRepairSink) Record(_ context.Context, ops []model.RepairOperation) error {
	if len(ops) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for i, op := range ops {
		value, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to encode repair operation: %w", err)
		}
		key := []byte(fmt.Sprintf("%s/%09d", op.RunID, i))
		if err := batch.Set(key, value, nil); err != nil {
			return fmt.Errorf("failed to stage repair operation: %w", err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit repair operations: %w", err)
	}

	s.logger.Info("Recorded repair operations", zap.Int("count", len(ops)))
	return nil
}

// Close releases the keyspace
func (s *PebbleRepairSink) Close() error {
	return s.db.Close()
}
