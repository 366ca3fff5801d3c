package trials

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/logging"
	"github.com/nvandessel/gossip/internal/report"
	"github.com/nvandessel/gossip/internal/store"
)

func newEngine(t *testing.T, n int) *gossip.Engine {
	t.Helper()
	e, err := gossip.NewEngine(gossip.Config{NumAgents: n, MaxRounds: 10000}, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestDriver_RunsEveryProtocolPerTrial(t *testing.T) {
	mem := store.NewMemoryResultStore()
	d := NewDriver(newEngine(t, 7), mem, nil)
	d.newID = func() string { return "batch-under-test" }

	plan := Plan{Trials: 4, Protocols: gossip.AllProtocols()}
	batch, err := d.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if batch.ID != "batch-under-test" {
		t.Errorf("unexpected batch id %q", batch.ID)
	}
	if len(batch.Records) != 16 {
		t.Fatalf("expected 16 records, got %d", len(batch.Records))
	}
	for i, rec := range batch.Records {
		wantTrial := i / 4
		wantProto := plan.Protocols[i%4]
		if rec.Trial != wantTrial || rec.Protocol != wantProto {
			t.Errorf("record %d: got trial %d %s, want trial %d %s", i, rec.Trial, rec.Protocol, wantTrial, wantProto)
		}
		if rec.RoundsTaken > 10000 {
			t.Errorf("record %d: rounds %d exceed cap", i, rec.RoundsTaken)
		}
	}

	stored, err := mem.Results(context.Background(), "batch-under-test")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(stored) != 16 {
		t.Errorf("expected 16 stored records, got %d", len(stored))
	}

	if len(batch.FinalCounts) != 4 {
		t.Errorf("expected final counts for 4 protocols, got %d", len(batch.FinalCounts))
	}
	if counts := batch.FinalCounts[gossip.ProtocolAny]; len(counts) != 7 {
		t.Errorf("expected 7 agent counts for ANY, got %v", counts)
	}
}

func TestDriver_TextReport(t *testing.T) {
	var buf bytes.Buffer
	d := NewDriver(newEngine(t, 4), report.NewTextSink(&buf), nil)

	if _, err := d.Run(context.Background(), Plan{Trials: 1, Protocols: []gossip.Protocol{gossip.ProtocolAny, gossip.ProtocolLearnNewSecrets}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	blocks := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 record blocks, got %d: %q", len(blocks), buf.String())
	}
	if !strings.HasPrefix(blocks[0], "Protocol: ANY\nRounds taken: ") {
		t.Errorf("unexpected first block: %q", blocks[0])
	}
	if !strings.HasPrefix(blocks[1], "Protocol: LNS\n") {
		t.Errorf("unexpected second block: %q", blocks[1])
	}
}

func TestDriver_InvalidPlan(t *testing.T) {
	d := NewDriver(newEngine(t, 3), store.NewMemoryResultStore(), nil)

	tests := []struct {
		name string
		plan Plan
	}{
		{"no trials", Plan{Trials: 0, Protocols: gossip.AllProtocols()}},
		{"no protocols", Plan{Trials: 1}},
		{"unknown protocol", Plan{Trials: 1, Protocols: []gossip.Protocol{gossip.ProtocolAny, "XYZ"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := d.Run(context.Background(), tt.plan)
			if err == nil {
				t.Fatal("expected error")
			}
			if batch != nil {
				t.Error("expected no batch for an invalid plan")
			}
		})
	}

	_, err := d.Run(context.Background(), Plan{Trials: 1, Protocols: []gossip.Protocol{"XYZ"}})
	if !errors.Is(err, gossip.ErrUnknownProtocol) {
		t.Errorf("expected ErrUnknownProtocol, got %v", err)
	}
}

func TestDriver_Cancelled(t *testing.T) {
	mem := store.NewMemoryResultStore()
	d := NewDriver(newEngine(t, 3), mem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := d.Run(ctx, Plan{Trials: 2, Protocols: gossip.AllProtocols()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if batch == nil || len(batch.Records) != 0 {
		t.Errorf("expected an empty partial batch, got %+v", batch)
	}
}

type failingSink struct{ err error }

func (f failingSink) Write(context.Context, report.Record) error { return f.err }
func (f failingSink) Close() error                                { return nil }

func TestDriver_SinkFailureStopsBatch(t *testing.T) {
	boom := errors.New("disk full")
	d := NewDriver(newEngine(t, 3), failingSink{err: boom}, nil)

	batch, err := d.Run(context.Background(), Plan{Trials: 3, Protocols: gossip.AllProtocols()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(batch.Records) != 0 {
		t.Errorf("failed record must not be collected, got %d", len(batch.Records))
	}
}

func TestDriver_TracesRounds(t *testing.T) {
	dir := t.TempDir()
	tl := logging.NewTraceLogger(dir, "trace")
	defer tl.Close()

	d := NewDriver(newEngine(t, 3), store.NewMemoryResultStore(), nil)
	d.newID = func() string { return "traced" }
	d.SetTracer(tl)

	batch, err := d.Run(context.Background(), Plan{Trials: 1, Protocols: []gossip.Protocol{gossip.ProtocolCallOnce}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "rounds.jsonl"))
	if err != nil {
		t.Fatalf("failed to read trace: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != batch.Records[0].RoundsTaken {
		t.Errorf("expected %d traced rounds, got %d", batch.Records[0].RoundsTaken, len(lines))
	}
	if !strings.Contains(lines[0], `"run":"traced/0/CO"`) {
		t.Errorf("expected run label in trace, got %s", lines[0])
	}
}
