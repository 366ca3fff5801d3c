package gossip

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/nvandessel/gossip/internal/constants"
)

// Config holds the fixed parameters of an engine.
type Config struct {
	// NumAgents is the population size N. Must be at least 1.
	NumAgents int

	// MaxRounds caps the number of rounds per run. Must be at least 1.
	MaxRounds int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		NumAgents: constants.DefaultNumAgents,
		MaxRounds: constants.DefaultMaxRounds,
	}
}

// Validate checks that the configuration can build an engine.
func (c Config) Validate() error {
	if c.NumAgents < 1 {
		return &ConfigError{Field: "num_agents", Reason: fmt.Sprintf("%d (must be >= 1)", c.NumAgents)}
	}
	if c.MaxRounds < 1 {
		return &ConfigError{Field: "max_rounds", Reason: fmt.Sprintf("%d (must be >= 1)", c.MaxRounds)}
	}
	return nil
}

// Result summarizes a single run.
type Result struct {
	Protocol                Protocol    `json:"protocol"`
	RoundsTaken             int         `json:"rounds_taken"`
	AverageContactsPerAgent float64     `json:"average_contacts_per_agent"`
	TotalMessagesKnown      int         `json:"total_messages_known"`
	TotalContacts           int         `json:"total_contacts"`
	Converged               bool        `json:"converged"`
	FinalCounts             map[int]int `json:"final_counts,omitempty"`
}

// RoundEvent describes one round. Caller and Callee are -1 when the round
// found no eligible agent.
type RoundEvent struct {
	Protocol  Protocol `json:"protocol"`
	Round     int      `json:"round"`
	Caller    int      `json:"caller"`
	Callee    int      `json:"callee"`
	Exchanged bool     `json:"exchanged"`
}

// RoundTracer receives every round the engine executes.
type RoundTracer interface {
	TraceRound(ev RoundEvent)
}

// Engine owns an agent population and drives gossip rounds over it.
// It is not safe for concurrent use.
type Engine struct {
	config        Config
	rng           *rand.Rand
	agents        []*Agent
	totalContacts int
	round         int
	candidates    []*Agent
	logger        *slog.Logger
	tracer        RoundTracer
}

// NewEngine creates an engine with a fresh population. rng is the only
// source of randomness; pass a seeded generator for reproducible runs.
func NewEngine(cfg Config, rng *rand.Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, &ConfigError{Field: "rng", Reason: "random source is required"}
	}

	e := &Engine{
		config:     cfg,
		rng:        rng,
		candidates: make([]*Agent, 0, cfg.NumAgents),
		logger:     slog.New(slog.DiscardHandler),
	}
	e.Reset()
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// SetLogger sets the logger used for per-run summaries. nil silences logging.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	e.logger = l
}

// SetTracer installs a tracer that sees every round. nil disables tracing.
func (e *Engine) SetTracer(t RoundTracer) { e.tracer = t }

// Reset recreates every agent and zeroes the contact counter.
func (e *Engine) Reset() {
	e.agents = make([]*Agent, e.config.NumAgents)
	for i := range e.agents {
		e.agents[i] = NewAgent(i)
	}
	e.totalContacts = 0
	e.round = 0
}

// Agent returns the agent with the given id.
func (e *Engine) Agent(id int) (*Agent, error) {
	if id < 0 || id >= len(e.agents) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchAgent, id)
	}
	return e.agents[id], nil
}

// Agents returns the current population ordered by id.
func (e *Engine) Agents() []*Agent {
	out := make([]*Agent, len(e.agents))
	copy(out, e.agents)
	return out
}

// TotalContacts returns the number of exchanges since the last reset.
func (e *Engine) TotalContacts() int { return e.totalContacts }

// MessageCounts maps each agent id to the number of secrets it knows.
func (e *Engine) MessageCounts() map[int]int {
	counts := make(map[int]int, len(e.agents))
	for _, a := range e.agents {
		counts[a.id] = a.KnownCount()
	}
	return counts
}

// Converged reports whether every agent knows all N secrets.
func (e *Engine) Converged() bool {
	for _, a := range e.agents {
		if a.KnownCount() < e.config.NumAgents {
			return false
		}
	}
	return true
}

// Contact forces an exchange between two agents and counts it, bypassing
// protocol eligibility.
func (e *Engine) Contact(callerID, calleeID int) error {
	caller, err := e.Agent(callerID)
	if err != nil {
		return err
	}
	callee, err := e.Agent(calleeID)
	if err != nil {
		return err
	}
	if caller == callee {
		return fmt.Errorf("%w: %d", ErrSelfContact, callerID)
	}
	caller.Exchange(callee)
	e.totalContacts++
	return nil
}

// Step executes one round of protocol p. It reports whether an exchange
// happened; a round with no eligible pair is a no-op but still counts.
func (e *Engine) Step(p Protocol) (bool, error) {
	r, ok := rules[p]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownProtocol, string(p))
	}
	return e.step(p, r, e.pickCaller(r)), nil
}

// StepAs executes one round of protocol p with callerID forced as caller.
// If the caller is not eligible under p the round is a no-op.
func (e *Engine) StepAs(p Protocol, callerID int) (bool, error) {
	r, ok := rules[p]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownProtocol, string(p))
	}
	caller, err := e.Agent(callerID)
	if err != nil {
		return false, err
	}
	if r.canCall != nil && !r.canCall(caller) {
		caller = nil
	}
	return e.step(p, r, caller), nil
}

// Run parses name and runs that protocol to termination. Unknown names
// fail immediately without running any rounds.
func (e *Engine) Run(name string) (Result, error) {
	p, err := ParseProtocol(name)
	if err != nil {
		return Result{}, err
	}
	return e.RunProtocol(p)
}

// RunProtocol runs rounds of p until every agent knows every secret or
// MaxRounds is reached, then resets the population for the next run.
//
// The population is not reset before the run. Knowledge, tokens, contact
// lists and the contact counter left by Step, StepAs, Contact or
// Agent.Learn carry into it and count toward its Result. After a previous
// RunProtocol the population is already canonical.
func (e *Engine) RunProtocol(p Protocol) (Result, error) {
	r, ok := rules[p]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownProtocol, string(p))
	}

	rounds := 0
	for rounds < e.config.MaxRounds && !e.Converged() {
		e.step(p, r, e.pickCaller(r))
		rounds++
	}

	res := e.summarize(p, rounds)
	e.logger.Debug("gossip run complete",
		"protocol", p,
		"rounds", res.RoundsTaken,
		"contacts", res.TotalContacts,
		"converged", res.Converged)
	e.Reset()
	return res, nil
}

func (e *Engine) summarize(p Protocol, rounds int) Result {
	counts := e.MessageCounts()
	total := 0
	for _, c := range counts {
		total += c
	}
	return Result{
		Protocol:                p,
		RoundsTaken:             rounds,
		AverageContactsPerAgent: float64(e.totalContacts) / float64(e.config.NumAgents),
		TotalMessagesKnown:      total,
		TotalContacts:           e.totalContacts,
		Converged:               e.Converged(),
		FinalCounts:             counts,
	}
}

// step completes one round with the given caller, which may be nil.
func (e *Engine) step(p Protocol, r rule, caller *Agent) bool {
	e.round++
	ev := RoundEvent{Protocol: p, Round: e.round, Caller: -1, Callee: -1}

	var callee *Agent
	if caller != nil {
		ev.Caller = caller.id
		callee = e.pickCallee(r, caller)
	}
	if callee != nil {
		caller.Exchange(callee)
		if r.afterExchange != nil {
			r.afterExchange(caller, callee)
		}
		e.totalContacts++
		ev.Callee = callee.id
		ev.Exchanged = true
	}

	if e.tracer != nil {
		e.tracer.TraceRound(ev)
	}
	return ev.Exchanged
}

// pickCaller draws uniformly among eligible callers, or returns nil.
func (e *Engine) pickCaller(r rule) *Agent {
	if r.canCall == nil {
		return e.agents[e.rng.IntN(len(e.agents))]
	}
	e.candidates = e.candidates[:0]
	for _, a := range e.agents {
		if r.canCall(a) {
			e.candidates = append(e.candidates, a)
		}
	}
	return e.drawCandidate()
}

// pickCallee draws uniformly among eligible callees other than caller, or
// returns nil.
func (e *Engine) pickCallee(r rule, caller *Agent) *Agent {
	e.candidates = e.candidates[:0]
	for _, a := range e.agents {
		if a != caller && r.canReceive(caller, a) {
			e.candidates = append(e.candidates, a)
		}
	}
	return e.drawCandidate()
}

func (e *Engine) drawCandidate() *Agent {
	if len(e.candidates) == 0 {
		return nil
	}
	return e.candidates[e.rng.IntN(len(e.candidates))]
}
