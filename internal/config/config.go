// Package config provides unified configuration loading for gossip.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/gossip"
	"gopkg.in/yaml.v3"
)

// GossipConfig contains all gossip configuration settings.
type GossipConfig struct {
	// Simulation contains population and batch settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Output controls where result records are reported.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational logging and round tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig configures the engine and the trials driver.
type SimulationConfig struct {
	// Agents is the population size N.
	Agents int `json:"agents" yaml:"agents"`

	// MaxRounds caps each run.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// Trials is how many times each protocol runs per batch.
	Trials int `json:"trials" yaml:"trials"`

	// Protocols lists the protocols to run, in order.
	Protocols []string `json:"protocols" yaml:"protocols"`

	// Seed seeds the random source. 0 means derive one from the clock.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// OutputConfig configures result reporting.
type OutputConfig struct {
	// Format is "text", "jsonl" or "sqlite".
	Format string `json:"format" yaml:"format"`

	// Path is the report file, or the data directory for "sqlite".
	// Supports ${VAR} syntax for env vars.
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig configures gossip's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" logs a summary of every run.
	// "trace" additionally writes every round to TraceDir/rounds.jsonl.
	Level string `json:"level" yaml:"level"`

	// TraceDir is where round traces are written.
	TraceDir string `json:"trace_dir" yaml:"trace_dir"`
}

// Default returns a GossipConfig with sensible defaults.
func Default() *GossipConfig {
	protocols := make([]string, 0, 4)
	for _, p := range gossip.AllProtocols() {
		protocols = append(protocols, p.String())
	}
	return &GossipConfig{
		Simulation: SimulationConfig{
			Agents:    constants.DefaultNumAgents,
			MaxRounds: constants.DefaultMaxRounds,
			Trials:    constants.DefaultTrials,
			Protocols: protocols,
		},
		Output: OutputConfig{
			Format: constants.FormatText,
			Path:   constants.DefaultResultsFile,
		},
		Logging: LoggingConfig{
			Level:    "info",
			TraceDir: constants.DataDirName,
		},
	}
}

// DefaultPath returns ~/.gossip/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName, constants.ConfigFileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.gossip/config.yaml -> environment variables
func Load() (*GossipConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Missing keys keep their default values.
func LoadFromFile(path string) (*GossipConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Output.Path = expandEnvVars(config.Output.Path)

	return config, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *GossipConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *GossipConfig) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}

	if c.Simulation.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Simulation.Trials)
	}

	if len(c.Simulation.Protocols) == 0 {
		return fmt.Errorf("at least one protocol is required")
	}
	if _, err := gossip.ParseProtocols(c.Simulation.Protocols); err != nil {
		return err
	}

	validFormats := map[string]bool{constants.FormatText: true, constants.FormatJSONL: true, constants.FormatSQLite: true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s (valid: text, jsonl, sqlite)", c.Output.Format)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// EngineConfig returns the engine settings carried by this configuration.
func (c *GossipConfig) EngineConfig() gossip.Config {
	return gossip.Config{
		NumAgents: c.Simulation.Agents,
		MaxRounds: c.Simulation.MaxRounds,
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GossipConfig) {
	if v := os.Getenv("GOSSIP_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Agents = n
		}
	}

	if v := os.Getenv("GOSSIP_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.MaxRounds = n
		}
	}

	if v := os.Getenv("GOSSIP_TRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Trials = n
		}
	}

	if v := os.Getenv("GOSSIP_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("GOSSIP_PROTOCOLS"); v != "" {
		config.Simulation.Protocols = SplitList(v)
	}

	if v := os.Getenv("GOSSIP_OUTPUT_FORMAT"); v != "" {
		config.Output.Format = v
	}

	if v := os.Getenv("GOSSIP_OUTPUT_PATH"); v != "" {
		config.Output.Path = expandEnvVars(v)
	}

	if v := os.Getenv("GOSSIP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
