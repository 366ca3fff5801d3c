package simulation

import (
	"github.com/nvandessel/gossip/internal/gossip"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name      string
	Agents    int
	MaxRounds int // 0 = gossip.DefaultConfig().MaxRounds
	Protocol  gossip.Protocol
	Seed      uint64
	Runs      int // consecutive runs on the same engine; 0 = 1

	// BeforeRun, when non-nil, is called with the run index before each run
	// executes. Use it to seed agent state (e.g. extra known secrets).
	BeforeRun func(runIndex int, e *gossip.Engine)
}

// AgentState is a copy of one agent's state at a point in time.
type AgentState struct {
	ID       int
	Known    []int
	HasToken bool
	Contacts []int
}

// RoundSnapshot captures a round event and the population right after it.
type RoundSnapshot struct {
	Event  gossip.RoundEvent
	Agents []AgentState
}

// RunResult captures the outcome of a single run.
type RunResult struct {
	Index  int
	Start  []AgentState
	Rounds []RoundSnapshot
	Result gossip.Result
	After  []AgentState // population after the engine reset
}

// SimulationResult captures all runs of a scenario.
type SimulationResult struct {
	Scenario Scenario
	Runs     []RunResult
}

// Snapshot copies the state of every agent in the engine.
func Snapshot(e *gossip.Engine) []AgentState {
	agents := e.Agents()
	out := make([]AgentState, len(agents))
	for i, a := range agents {
		out[i] = AgentState{
			ID:       a.ID(),
			Known:    a.KnownSecrets(),
			HasToken: a.HasToken(),
			Contacts: a.Contacts(),
		}
	}
	return out
}

// PairKey orders two agent ids so that (a, b) and (b, a) share a key.
func PairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
