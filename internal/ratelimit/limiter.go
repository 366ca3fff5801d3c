// Package ratelimit meters MCP tool usage with token buckets.
//
// Each tool owns one bucket. A call spends tokens proportional to the work
// it asks for, so a single gossip_run of 400 simulations costs as much as
// 400 single-run calls.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrExhausted is returned when a bucket cannot cover a call's cost.
var ErrExhausted = errors.New("rate limit exceeded")

// Bucket is a token bucket refilled continuously at a fixed rate.
// It is safe for concurrent use.
type Bucket struct {
	mu       sync.Mutex
	tokens   float64
	last     time.Time
	rate     float64 // tokens per second
	capacity float64
	nowFunc  func() time.Time
}

// NewBucket creates a full bucket holding capacity tokens that refills at
// rate tokens per second.
func NewBucket(rate float64, capacity int) *Bucket {
	return &Bucket{
		tokens:   float64(capacity),
		rate:     rate,
		capacity: float64(capacity),
		nowFunc:  time.Now,
	}
}

// Take spends cost tokens, or none at all when fewer are available.
// On refusal it reports how long until the cost would be covered; the wait
// is negative when the cost exceeds capacity and can never be covered.
func (b *Bucket) Take(cost int) (ok bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	need := float64(cost)
	if need <= b.tokens {
		b.tokens -= need
		return true, 0
	}
	if need > b.capacity || b.rate <= 0 {
		return false, -1
	}
	secs := (need - b.tokens) / b.rate
	return false, time.Duration(math.Ceil(secs * float64(time.Second)))
}

// Available returns the whole tokens currently in the bucket.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return int(b.tokens)
}

func (b *Bucket) refill() {
	now := b.nowFunc()
	if b.last.IsZero() {
		b.last = now
		return
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+b.rate*elapsed)
		b.last = now
	}
}

// ToolLimits maps tool names to their buckets.
type ToolLimits map[string]*Bucket

// NewToolLimits returns the default buckets for the gossip MCP tools.
// gossip_run is charged one token per simulated run.
func NewToolLimits() ToolLimits {
	return ToolLimits{
		"gossip_run":     NewBucket(400.0/60.0, 400), // 400 runs/minute
		"gossip_history": NewBucket(1.0, 10),         // 60 calls/minute, burst 10
	}
}

// Check charges cost to the named tool's bucket. Tools without a bucket are
// unmetered.
func (l ToolLimits) Check(tool string, cost int) error {
	b, ok := l[tool]
	if !ok {
		return nil
	}
	allowed, wait := b.Take(cost)
	if allowed {
		return nil
	}
	if wait < 0 {
		return fmt.Errorf("%w for %s: a cost of %d exceeds the limit of %d", ErrExhausted, tool, cost, int(b.capacity))
	}
	return fmt.Errorf("%w for %s, retry in %s", ErrExhausted, tool, wait.Round(time.Second))
}
