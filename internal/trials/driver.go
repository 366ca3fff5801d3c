// Package trials runs repeated simulation batches. A Driver owns one engine,
// runs every protocol of a Plan once per trial, and hands each result to a
// report sink.
package trials

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/logging"
	"github.com/nvandessel/gossip/internal/report"
)

// Plan selects what a batch runs.
type Plan struct {
	// Trials is how many times the full protocol list runs. Must be >= 1.
	Trials int

	// Protocols run in order within each trial.
	Protocols []gossip.Protocol
}

// Validate checks the plan before any run starts.
func (p Plan) Validate() error {
	if p.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", p.Trials)
	}
	if len(p.Protocols) == 0 {
		return fmt.Errorf("at least one protocol is required")
	}
	for _, proto := range p.Protocols {
		if !proto.Valid() {
			return fmt.Errorf("%w: %q", gossip.ErrUnknownProtocol, string(proto))
		}
	}
	return nil
}

// Batch collects the outcome of one Driver.Run.
type Batch struct {
	ID      string
	Records []report.Record

	// FinalCounts holds, per protocol, the per-agent known-secret counts
	// at the end of that protocol's most recent run.
	FinalCounts map[gossip.Protocol]map[int]int
}

// Driver runs batches against a single engine.
type Driver struct {
	engine *gossip.Engine
	sink   report.Sink
	logger *slog.Logger
	tracer *logging.TraceLogger
	newID  func() string
	now    func() time.Time
}

// NewDriver creates a driver. logger may be nil.
func NewDriver(engine *gossip.Engine, sink report.Sink, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		engine: engine,
		sink:   sink,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
}

// SetTracer attaches a round tracer to the engine and labels each run in
// the trace with its batch, trial and protocol.
func (d *Driver) SetTracer(tl *logging.TraceLogger) {
	d.tracer = tl
	if tl != nil {
		d.engine.SetTracer(tl)
	} else {
		d.engine.SetTracer(nil)
	}
}

// Run executes the plan. Cancellation is checked between runs; a cancelled
// batch returns what it collected so far together with the context error.
func (d *Driver) Run(ctx context.Context, plan Plan) (*Batch, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:          d.newID(),
		FinalCounts: make(map[gossip.Protocol]map[int]int, len(plan.Protocols)),
	}
	d.logger.Info("starting batch",
		"batch", batch.ID,
		"agents", d.engine.Config().NumAgents,
		"trials", plan.Trials,
		"protocols", len(plan.Protocols))

	for trial := 0; trial < plan.Trials; trial++ {
		for _, proto := range plan.Protocols {
			if err := ctx.Err(); err != nil {
				return batch, fmt.Errorf("batch %s interrupted: %w", batch.ID, err)
			}

			d.tracer.SetRun(fmt.Sprintf("%s/%d/%s", batch.ID, trial, proto))
			res, err := d.engine.RunProtocol(proto)
			if err != nil {
				return batch, fmt.Errorf("trial %d %s: %w", trial, proto, err)
			}

			rec := report.Record{
				BatchID:   batch.ID,
				Trial:     trial,
				CreatedAt: d.now(),
				Result:    res,
			}
			if err := d.sink.Write(ctx, rec); err != nil {
				return batch, fmt.Errorf("reporting trial %d %s: %w", trial, proto, err)
			}

			batch.Records = append(batch.Records, rec)
			batch.FinalCounts[proto] = res.FinalCounts

			d.logger.Debug("run reported",
				"trial", trial,
				"protocol", proto,
				"rounds", res.RoundsTaken,
				"converged", res.Converged)
		}
	}

	d.logger.Info("batch complete", "batch", batch.ID, "records", len(batch.Records))
	return batch, nil
}
