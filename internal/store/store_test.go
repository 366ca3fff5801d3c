package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/report"
)

// storeFactories builds every ResultStore implementation for contract tests.
func storeFactories(t *testing.T) map[string]func() ResultStore {
	t.Helper()
	return map[string]func() ResultStore{
		"memory": func() ResultStore { return NewMemoryResultStore() },
		"sqlite": func() ResultStore {
			s, err := NewSQLiteResultStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewSQLiteResultStore() error = %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func record(batch string, trial int, p gossip.Protocol, at time.Time) report.Record {
	return report.Record{
		BatchID:   batch,
		Trial:     trial,
		CreatedAt: at,
		Result: gossip.Result{
			Protocol:                p,
			RoundsTaken:             17,
			AverageContactsPerAgent: 1.5,
			TotalMessagesKnown:      16,
			TotalContacts:           6,
			Converged:               true,
			FinalCounts:             map[int]int{0: 4, 1: 4, 2: 4, 3: 4},
		},
	}
}

func TestResultStore_WriteAndResults(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			ctx := context.Background()
			at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			want := []report.Record{
				record("b1", 0, gossip.ProtocolAny, at),
				record("b1", 0, gossip.ProtocolSpider, at),
				record("b1", 1, gossip.ProtocolAny, at),
			}
			want[1].Converged = false
			want[1].FinalCounts = map[int]int{0: 2, 1: 2, 2: 1, 3: 1}

			for _, rec := range want {
				if err := s.Write(ctx, rec); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}

			got, err := s.Results(ctx, "b1")
			if err != nil {
				t.Fatalf("Results() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Results() mismatch:\n got  %+v\n want %+v", got, want)
			}
		})
	}
}

func TestResultStore_UnknownBatch(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			got, err := factory().Results(context.Background(), "missing")
			if err != nil {
				t.Fatalf("Results() error = %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", got)
			}
		})
	}
}

func TestResultStore_RequiresBatchID(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			rec := record("", 0, gossip.ProtocolAny, time.Now())
			if err := factory().Write(context.Background(), rec); err == nil {
				t.Error("expected error for empty batch ID")
			}
		})
	}
}

func TestResultStore_ListBatches(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			ctx := context.Background()
			older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			newer := older.Add(time.Hour)

			for _, rec := range []report.Record{
				record("old", 0, gossip.ProtocolAny, older),
				record("old", 0, gossip.ProtocolCallOnce, older),
				record("new", 0, gossip.ProtocolLearnNewSecrets, newer),
			} {
				if err := s.Write(ctx, rec); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}

			batches, err := s.ListBatches(ctx)
			if err != nil {
				t.Fatalf("ListBatches() error = %v", err)
			}
			if len(batches) != 2 {
				t.Fatalf("expected 2 batches, got %d", len(batches))
			}
			if batches[0].ID != "new" || batches[0].Records != 1 {
				t.Errorf("unexpected newest batch: %+v", batches[0])
			}
			if batches[1].ID != "old" || batches[1].Records != 2 {
				t.Errorf("unexpected oldest batch: %+v", batches[1])
			}
			if !batches[1].CreatedAt.Equal(older) {
				t.Errorf("expected created_at %v, got %v", older, batches[1].CreatedAt)
			}
		})
	}
}

func TestResultStore_ListBatchesSubSecondOrder(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			ctx := context.Background()
			base := time.Date(2026, 3, 4, 5, 6, 5, 0, time.UTC)

			// .100s and .120s format as "05.1Z" and "05.12Z" with trimmed zeros.
			writes := []struct {
				batch string
				at    time.Time
			}{
				{"tenth", base.Add(100 * time.Millisecond)},
				{"later", base.Add(120 * time.Millisecond)},
				{"whole", base},
			}
			for _, w := range writes {
				if err := s.Write(ctx, record(w.batch, 0, gossip.ProtocolAny, w.at)); err != nil {
					t.Fatalf("Write(%s) error = %v", w.batch, err)
				}
			}

			batches, err := s.ListBatches(ctx)
			if err != nil {
				t.Fatalf("ListBatches() error = %v", err)
			}
			want := []string{"later", "tenth", "whole"}
			if len(batches) != len(want) {
				t.Fatalf("expected %d batches, got %d", len(want), len(batches))
			}
			for i, id := range want {
				if batches[i].ID != id {
					t.Errorf("batches[%d].ID = %q, want %q", i, batches[i].ID, id)
				}
			}
			if !batches[0].CreatedAt.Equal(writes[1].at) {
				t.Errorf("CreatedAt = %v, want %v", batches[0].CreatedAt, writes[1].at)
			}
		})
	}
}

func TestNewSQLiteResultStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".gossip")

	s, err := NewSQLiteResultStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteResultStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "gossip.db")); os.IsNotExist(err) {
		t.Error("gossip.db was not created")
	}
	if s.Path() != filepath.Join(dir, "gossip.db") {
		t.Errorf("unexpected path %s", s.Path())
	}
}

func TestSQLiteResultStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteResultStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteResultStore() error = %v", err)
	}
	if err := s.Write(ctx, record("keep", 2, gossip.ProtocolSpider, time.Now())); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteResultStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Results(ctx, "keep")
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if len(got) != 1 || got[0].Trial != 2 || got[0].Protocol != gossip.ProtocolSpider {
		t.Errorf("unexpected records after reopen: %+v", got)
	}
}

func TestSQLiteResultStore_CloseTwice(t *testing.T) {
	s, err := NewSQLiteResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteResultStore() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
