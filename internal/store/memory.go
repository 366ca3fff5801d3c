package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/gossip/internal/report"
)

// MemoryResultStore implements ResultStore for testing and one-off runs.
type MemoryResultStore struct {
	mu      sync.RWMutex
	order   []string
	created map[string]time.Time
	records map[string][]report.Record
}

var _ ResultStore = (*MemoryResultStore)(nil)

// NewMemoryResultStore creates a new in-memory store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		created: make(map[string]time.Time),
		records: make(map[string][]report.Record),
	}
}

// Write stores rec.
func (s *MemoryResultStore) Write(ctx context.Context, rec report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.BatchID == "" {
		return fmt.Errorf("batch ID is required")
	}

	if _, ok := s.created[rec.BatchID]; !ok {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		s.created[rec.BatchID] = createdAt
		s.order = append(s.order, rec.BatchID)
	}
	s.records[rec.BatchID] = append(s.records[rec.BatchID], rec)
	return nil
}

// ListBatches returns all batches, newest first.
func (s *MemoryResultStore) ListBatches(ctx context.Context) ([]BatchInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]BatchInfo, 0, len(s.order))
	for _, id := range s.order {
		batches = append(batches, BatchInfo{
			ID:        id,
			CreatedAt: s.created[id],
			Records:   len(s.records[id]),
		})
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	return batches, nil
}

// Results returns a copy of the records of a batch.
func (s *MemoryResultStore) Results(ctx context.Context, batchID string) ([]report.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]report.Record, len(s.records[batchID]))
	copy(out, s.records[batchID])
	return out, nil
}

// Close is a no-op.
func (s *MemoryResultStore) Close() error { return nil }
