// pkg/store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// MemoryRawStore is a thread-safe in-memory raw store for tests and dry runs.
type MemoryRawStore struct {
	mu   sync.RWMutex
	data map[int64]model.RawOrderRecord
}

// NewMemoryRawStore creates an empty raw store
func NewMemoryRawStore() *MemoryRawStore {
	return &MemoryRawStore{data: make(map[int64]model.RawOrderRecord)}
}

// EnsureSchema is a no-op
func (s *MemoryRawStore) EnsureSchema(_ context.Context) error {
	return nil
}

// InsertBatch writes raw records, overwriting existing keys
func (s *MemoryRawStore) InsertBatch(_ context.Context, records []model.RawOrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.data[rec.OrderID] = rec
	}
	return nil
}

// ScanAll returns every raw record ordered by order_id
func (s *MemoryRawStore) ScanAll(_ context.Context) ([]model.RawOrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.RawOrderRecord, 0, len(s.data))
	for _, rec := range s.data {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].OrderID < records[j].OrderID
	})
	return records, nil
}

// DeleteByKey removes one raw record
func (s *MemoryRawStore) DeleteByKey(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, orderID)
	return nil
}

// Count returns the number of raw records
func (s *MemoryRawStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// Close is a no-op
func (s *MemoryRawStore) Close() error {
	return nil
}

// MemoryCanonicalStore is a thread-safe in-memory canonical store. Like the
// durable drivers it treats order_id as a primary key.
type MemoryCanonicalStore struct {
	mu   sync.RWMutex
	data map[int64]model.CleanOrderRecord
}

// NewMemoryCanonicalStore creates an empty canonical store
func NewMemoryCanonicalStore() *MemoryCanonicalStore {
	return &MemoryCanonicalStore{data: make(map[int64]model.CleanOrderRecord)}
}

// EnsureSchema is a no-op
func (s *MemoryCanonicalStore) EnsureSchema(_ context.Context) error {
	return nil
}

// BulkInsert writes canonical records, rejecting the whole batch when any
// key collides with the store or with another record in the batch.
func (s *MemoryCanonicalStore) BulkInsert(_ context.Context, records []model.CleanOrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.OrderID]; dup {
			return fmt.Errorf("canonical order %d: %w", rec.OrderID, ErrDuplicateKey)
		}
		if _, exists := s.data[rec.OrderID]; exists {
			return fmt.Errorf("canonical order %d: %w", rec.OrderID, ErrDuplicateKey)
		}
		seen[rec.OrderID] = struct{}{}
	}

	for _, rec := range records {
		s.data[rec.OrderID] = rec
	}
	return nil
}

// Records returns every canonical record ordered by order_id
func (s *MemoryCanonicalStore) Records() []model.CleanOrderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.CleanOrderRecord, 0, len(s.data))
	for _, rec := range s.data {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].OrderID < records[j].OrderID
	})
	return records
}

// Count returns the number of canonical records
func (s *MemoryCanonicalStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// Close is a no-op
func (s *MemoryCanonicalStore) Close() error {
	return nil
}
