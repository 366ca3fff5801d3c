// Package constants provides named constants used throughout the gossip codebase.
// This centralizes defaults so the CLI, config and engine agree on them.
package constants

// Simulation defaults
const (
	// DefaultNumAgents is the population size used when none is configured.
	DefaultNumAgents = 7

	// DefaultMaxRounds caps a single run. A run that reaches it without every
	// agent knowing every secret did not converge.
	DefaultMaxRounds = 10000

	// DefaultTrials is how many times each protocol is run per batch.
	DefaultTrials = 4
)

// File and directory names
const (
	// DataDirName is the per-project and per-user directory for gossip state.
	DataDirName = ".gossip"

	// ConfigFileName is the YAML config file inside the user data directory.
	ConfigFileName = "config.yaml"

	// DefaultResultsFile is where the text report is written by default.
	DefaultResultsFile = "gossip_simulation_results.txt"

	// DefaultJSONLFile is where the JSONL report is written by default.
	DefaultJSONLFile = "gossip_simulation_results.jsonl"

	// DatabaseFileName is the SQLite result store inside the data directory.
	DatabaseFileName = "gossip.db"

	// RoundTraceFileName receives per-round JSONL events at trace level.
	RoundTraceFileName = "rounds.jsonl"
)

// Output formats accepted by the run command and config.
const (
	FormatText   = "text"
	FormatJSONL  = "jsonl"
	FormatSQLite = "sqlite"
)
