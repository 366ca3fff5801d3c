// Package store provides result storage implementations.
package store

import (
	"context"
	"time"

	"github.com/nvandessel/gossip/internal/report"
)

// BatchInfo describes one stored batch of runs.
type BatchInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
}

// ResultStore persists result records and lists them back by batch.
// Every ResultStore is also a report.Sink.
type ResultStore interface {
	report.Sink

	// ListBatches returns all batches, newest first.
	ListBatches(ctx context.Context) ([]BatchInfo, error)

	// Results returns the records of a batch in insertion order.
	// An unknown batch yields an empty slice.
	Results(ctx context.Context, batchID string) ([]report.Record, error)
}
