// Package report delivers simulation result records to their destinations.
//
// A Sink receives one Record per protocol run. The text sink reproduces the
// classic line-oriented report: one "Key: value" line per field and a blank
// line between records.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/gossip/internal/gossip"
)

// Record is a single run result tagged with the batch it belongs to.
type Record struct {
	BatchID   string    `json:"batch_id"`
	Trial     int       `json:"trial"`
	CreatedAt time.Time `json:"created_at"`
	gossip.Result
}

// Sink persists result records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// MultiSink fans records out to several sinks.
type MultiSink []Sink

// Write delivers rec to every sink, even after a failure, and returns the
// joined errors.
func (m MultiSink) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and returns the joined errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
