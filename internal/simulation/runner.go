package simulation

import (
	"math/rand/v2"
	"testing"

	"github.com/nvandessel/gossip/internal/gossip"
)

// Runner executes scenarios against a real engine with a recording tracer.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner bound to t.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// recorder snapshots the population after every traced round.
type recorder struct {
	engine *gossip.Engine
	rounds []RoundSnapshot
}

func (rec *recorder) TraceRound(ev gossip.RoundEvent) {
	rec.rounds = append(rec.rounds, RoundSnapshot{Event: ev, Agents: Snapshot(rec.engine)})
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()

	cfg := gossip.DefaultConfig()
	cfg.NumAgents = scenario.Agents
	if scenario.MaxRounds > 0 {
		cfg.MaxRounds = scenario.MaxRounds
	}

	rng := rand.New(rand.NewPCG(scenario.Seed, scenario.Seed^0x9e3779b97f4a7c15))
	engine, err := gossip.NewEngine(cfg, rng)
	if err != nil {
		r.t.Fatalf("%s: NewEngine: %v", scenario.Name, err)
	}

	runs := scenario.Runs
	if runs < 1 {
		runs = 1
	}

	result := SimulationResult{Scenario: scenario, Runs: make([]RunResult, 0, runs)}
	for i := 0; i < runs; i++ {
		rec := &recorder{engine: engine}
		engine.SetTracer(rec)

		start := Snapshot(engine)
		if scenario.BeforeRun != nil {
			scenario.BeforeRun(i, engine)
		}

		res, err := engine.RunProtocol(scenario.Protocol)
		if err != nil {
			r.t.Fatalf("%s: run %d: %v", scenario.Name, i, err)
		}

		result.Runs = append(result.Runs, RunResult{
			Index:  i,
			Start:  start,
			Rounds: rec.rounds,
			Result: res,
			After:  Snapshot(engine),
		})
	}
	engine.SetTracer(nil)

	return result
}
