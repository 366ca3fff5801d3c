package mcp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/report"
	"github.com/nvandessel/gossip/internal/trials"
)

// Upper bounds on a single gossip_run call.
const (
	maxToolAgents = 1000
	maxToolTrials = 100
	maxToolRounds = 1_000_000
)

// registerTools registers all gossip MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gossip_run",
		Description: "Run a batch of gossip simulations and store the results",
	}, s.handleGossipRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gossip_protocols",
		Description: "List the supported contact protocols",
	}, s.handleGossipProtocols)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gossip_history",
		Description: "List stored batches, or the runs of one batch",
	}, s.handleGossipHistory)
}

// logTool records a tool invocation with its duration and outcome.
func (s *Server) logTool(tool string, start time.Time, err error) {
	if err != nil {
		s.logger.Warn("tool failed", "tool", tool, "duration", time.Since(start), "err", err)
		return
	}
	s.logger.Debug("tool complete", "tool", tool, "duration", time.Since(start))
}

// handleGossipRun implements the gossip_run tool.
func (s *Server) handleGossipRun(ctx context.Context, req *sdk.CallToolRequest, args GossipRunInput) (_ *sdk.CallToolResult, _ GossipRunOutput, retErr error) {
	start := time.Now()
	defer func() { s.logTool("gossip_run", start, retErr) }()

	cfg := gossip.DefaultConfig()
	if args.Agents != 0 {
		cfg.NumAgents = args.Agents
	}
	if args.MaxRounds != 0 {
		cfg.MaxRounds = args.MaxRounds
	}
	if cfg.NumAgents > maxToolAgents {
		return nil, GossipRunOutput{}, fmt.Errorf("agents must be at most %d, got %d", maxToolAgents, cfg.NumAgents)
	}
	if cfg.MaxRounds > maxToolRounds {
		return nil, GossipRunOutput{}, fmt.Errorf("max_rounds must be at most %d, got %d", maxToolRounds, cfg.MaxRounds)
	}

	plan := trials.Plan{Trials: constants.DefaultTrials, Protocols: gossip.AllProtocols()}
	if args.Trials != 0 {
		plan.Trials = args.Trials
	}
	if plan.Trials > maxToolTrials {
		return nil, GossipRunOutput{}, fmt.Errorf("trials must be at most %d, got %d", maxToolTrials, plan.Trials)
	}
	if len(args.Protocols) > 0 {
		protocols, err := gossip.ParseProtocols(args.Protocols)
		if err != nil {
			return nil, GossipRunOutput{}, err
		}
		plan.Protocols = protocols
	}
	if err := cfg.Validate(); err != nil {
		return nil, GossipRunOutput{}, err
	}
	if err := plan.Validate(); err != nil {
		return nil, GossipRunOutput{}, err
	}
	if err := s.limits.Check("gossip_run", plan.Trials*len(plan.Protocols)); err != nil {
		return nil, GossipRunOutput{}, err
	}

	seed := args.Seed
	if seed == 0 {
		seed = s.seed()
	}

	engine, err := gossip.NewEngine(cfg, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return nil, GossipRunOutput{}, err
	}
	engine.SetLogger(s.logger)

	batch, err := trials.NewDriver(engine, s.store, s.logger).Run(ctx, plan)
	if err != nil {
		return nil, GossipRunOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	runs := summarize(batch.Records)
	return nil, GossipRunOutput{
		BatchID: batch.ID,
		Seed:    seed,
		Runs:    runs,
		Count:   len(runs),
	}, nil
}

// handleGossipProtocols implements the gossip_protocols tool.
func (s *Server) handleGossipProtocols(ctx context.Context, req *sdk.CallToolRequest, args GossipProtocolsInput) (*sdk.CallToolResult, GossipProtocolsOutput, error) {
	var out GossipProtocolsOutput
	for _, p := range gossip.AllProtocols() {
		out.Protocols = append(out.Protocols, ProtocolInfo{
			Name:        p.String(),
			LongName:    p.LongName(),
			Description: p.Description(),
		})
	}
	return nil, out, nil
}

// handleGossipHistory implements the gossip_history tool.
func (s *Server) handleGossipHistory(ctx context.Context, req *sdk.CallToolRequest, args GossipHistoryInput) (_ *sdk.CallToolResult, _ GossipHistoryOutput, retErr error) {
	start := time.Now()
	defer func() { s.logTool("gossip_history", start, retErr) }()

	if err := s.limits.Check("gossip_history", 1); err != nil {
		return nil, GossipHistoryOutput{}, err
	}

	if args.BatchID != "" {
		records, err := s.store.Results(ctx, args.BatchID)
		if err != nil {
			return nil, GossipHistoryOutput{}, fmt.Errorf("failed to load batch: %w", err)
		}
		runs := summarize(records)
		return nil, GossipHistoryOutput{Runs: runs, Count: len(runs)}, nil
	}

	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, GossipHistoryOutput{}, fmt.Errorf("failed to list batches: %w", err)
	}
	items := make([]BatchItem, 0, len(batches))
	for _, b := range batches {
		items = append(items, BatchItem{ID: b.ID, CreatedAt: b.CreatedAt, Records: b.Records})
	}
	return nil, GossipHistoryOutput{Batches: items, Count: len(items)}, nil
}

func summarize(records []report.Record) []RunSummary {
	out := make([]RunSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, RunSummary{
			Trial:                   rec.Trial,
			Protocol:                rec.Protocol.String(),
			RoundsTaken:             rec.RoundsTaken,
			AverageContactsPerAgent: rec.AverageContactsPerAgent,
			TotalMessagesKnown:      rec.TotalMessagesKnown,
			Converged:               rec.Converged,
		})
	}
	return out
}

func timeSeed() uint64 {
	return uint64(time.Now().UnixNano())
}
