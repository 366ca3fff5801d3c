package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/gossip/internal/config"
	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/logging"
	"github.com/nvandessel/gossip/internal/report"
	"github.com/nvandessel/gossip/internal/store"
	"github.com/nvandessel/gossip/internal/trials"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch of simulations",
		Long: `Run every selected protocol once per trial against a fresh population
and report one record per run.

Examples:
  gossipsim run                                 # 4 trials of all protocols, 7 agents
  gossipsim run --agents 20 --protocols CO,LNS  # two protocols, larger population
  gossipsim run --format jsonl --out runs.jsonl
  gossipsim run --format sqlite --seed 42       # reproducible, stored in .gossip/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := withSignalCancel(cmd.Context())
			defer cancel()

			noColor, _ := cmd.Flags().GetBool("no-color")
			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr(), noColor)
			jsonOut, _ := cmd.Flags().GetBool("json")

			return runBatch(ctx, cfg, logger, cmd.OutOrStdout(), jsonOut)
		},
	}

	cmd.Flags().Int("agents", constants.DefaultNumAgents, "Number of agents")
	cmd.Flags().Int("max-rounds", constants.DefaultMaxRounds, "Round cap per run")
	cmd.Flags().Int("trials", constants.DefaultTrials, "Runs per protocol")
	cmd.Flags().StringSlice("protocols", nil, "Protocols to run (default all: ANY,CO,SPI,LNS)")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 derives one from the clock)")
	cmd.Flags().String("format", constants.FormatText, "Report format: text, jsonl, sqlite")
	cmd.Flags().String("out", "", "Report path, or data directory for sqlite")
	cmd.Flags().String("log-level", "", "Log level: info, debug, trace")
	cmd.Flags().String("trace-dir", "", "Directory for rounds.jsonl when log level is trace")
	cmd.Flags().Bool("no-color", false, "Disable colored log output")

	return cmd
}

// applyRunFlags overlays explicitly set flags on the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.GossipConfig) {
	flags := cmd.Flags()
	if flags.Changed("agents") {
		cfg.Simulation.Agents, _ = flags.GetInt("agents")
	}
	if flags.Changed("max-rounds") {
		cfg.Simulation.MaxRounds, _ = flags.GetInt("max-rounds")
	}
	if flags.Changed("trials") {
		cfg.Simulation.Trials, _ = flags.GetInt("trials")
	}
	if flags.Changed("protocols") {
		protocols, _ := flags.GetStringSlice("protocols")
		cfg.Simulation.Protocols = protocols
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("format") {
		format, _ := flags.GetString("format")
		cfg.Output.Format = format
		if !flags.Changed("out") && format == constants.FormatSQLite {
			cfg.Output.Path = ""
		}
	}
	if flags.Changed("out") {
		cfg.Output.Path, _ = flags.GetString("out")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("trace-dir") {
		cfg.Logging.TraceDir, _ = flags.GetString("trace-dir")
	}
}

// batchOutput is the --json shape of a finished batch.
type batchOutput struct {
	BatchID     string                          `json:"batch_id"`
	Seed        uint64                          `json:"seed"`
	Agents      int                             `json:"agents"`
	Records     []report.Record                 `json:"records"`
	FinalCounts map[gossip.Protocol]map[int]int `json:"final_counts"`
	Report      string                          `json:"report"`
	Interrupted bool                            `json:"interrupted,omitempty"`
}

// runBatch wires configuration to engine, driver and sink, then prints the
// batch summary to out.
func runBatch(ctx context.Context, cfg *config.GossipConfig, logger *slog.Logger, out io.Writer, jsonOut bool) error {
	protocols, err := gossip.ParseProtocols(cfg.Simulation.Protocols)
	if err != nil {
		return err
	}

	seed := resolveSeed(cfg.Simulation.Seed)
	engine, err := gossip.NewEngine(cfg.EngineConfig(), rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return err
	}
	engine.SetLogger(logger)

	sink, location, err := openSink(cfg)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer sink.Close()

	driver := trials.NewDriver(engine, sink, logger)
	if tl := logging.NewTraceLogger(cfg.Logging.TraceDir, cfg.Logging.Level); tl != nil {
		defer tl.Close()
		driver.SetTracer(tl)
	}

	batch, runErr := driver.Run(ctx, trials.Plan{
		Trials:    cfg.Simulation.Trials,
		Protocols: protocols,
	})
	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return runErr
	}
	if interrupted {
		logger.Warn("batch interrupted", "batch", batch.ID, "runs", len(batch.Records))
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}

	result := batchOutput{
		BatchID:     batch.ID,
		Seed:        seed,
		Agents:      cfg.Simulation.Agents,
		Records:     batch.Records,
		FinalCounts: batch.FinalCounts,
		Report:      location,
		Interrupted: interrupted,
	}
	if jsonOut {
		if err := json.NewEncoder(out).Encode(result); err != nil {
			return err
		}
	} else if err := printBatch(out, result); err != nil {
		return err
	}

	if interrupted {
		return runErr
	}
	return nil
}

// openSink builds the reporting sink for the configured format and returns
// the location it writes to.
func openSink(cfg *config.GossipConfig) (report.Sink, string, error) {
	path := cfg.Output.Path
	switch cfg.Output.Format {
	case constants.FormatText:
		if path == "" {
			path = constants.DefaultResultsFile
		}
		sink, err := report.CreateTextFile(path)
		return sink, path, err
	case constants.FormatJSONL:
		if path == "" || path == constants.DefaultResultsFile {
			path = constants.DefaultJSONLFile
		}
		sink, err := report.OpenJSONLFile(path)
		return sink, path, err
	case constants.FormatSQLite:
		if path == "" || path == constants.DefaultResultsFile {
			path = constants.DataDirName
		}
		s, err := store.NewSQLiteResultStore(path)
		if err != nil {
			return nil, "", err
		}
		return s, s.Path(), nil
	default:
		return nil, "", fmt.Errorf("invalid output format: %s", cfg.Output.Format)
	}
}

func resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func printBatch(w io.Writer, out batchOutput) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIAL\tPROTOCOL\tROUNDS\tAVG CONTACTS\tKNOWN\tCONVERGED")
	for _, rec := range out.Records {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%d\t%t\n",
			rec.Trial, rec.Protocol, rec.RoundsTaken, rec.AverageContactsPerAgent,
			rec.TotalMessagesKnown, rec.Converged)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nBatch %s (seed %d, %d agents): %d runs reported to %s\n",
		out.BatchID, out.Seed, out.Agents, len(out.Records), filepath.Clean(out.Report))
	if out.Interrupted {
		fmt.Fprintln(w, "Batch interrupted before completion.")
	}
	return nil
}
