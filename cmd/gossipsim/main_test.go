package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/store"
)

// isolateHome points HOME at a temp directory and clears GOSSIP_* overrides
// so tests never read the real ~/.gossip/config.yaml.
func isolateHome(t *testing.T) string {
	t.Helper()
	tmpHome := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	for _, key := range []string{
		"GOSSIP_AGENTS", "GOSSIP_MAX_ROUNDS", "GOSSIP_TRIALS", "GOSSIP_SEED",
		"GOSSIP_PROTOCOLS", "GOSSIP_OUTPUT_FORMAT", "GOSSIP_OUTPUT_PATH", "GOSSIP_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return tmpHome
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "run", "protocols", "history", "config", "mcp-server"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("version output is not JSON: %v (%q)", err, out)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestProtocolsCmd(t *testing.T) {
	out, err := execute(t, "protocols")
	if err != nil {
		t.Fatalf("protocols failed: %v", err)
	}
	for _, p := range gossip.AllProtocols() {
		if !strings.Contains(out, p.String()) {
			t.Errorf("protocols output missing %s:\n%s", p, out)
		}
	}
}

func TestRunJSONL(t *testing.T) {
	isolateHome(t)
	outPath := filepath.Join(t.TempDir(), "runs.jsonl")

	out, err := execute(t, "run",
		"--json",
		"--seed", "42",
		"--trials", "2",
		"--protocols", "CO,LNS",
		"--format", "jsonl",
		"--out", outPath,
	)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var batch batchOutput
	if err := json.Unmarshal([]byte(out), &batch); err != nil {
		t.Fatalf("run output is not JSON: %v (%q)", err, out)
	}
	if batch.Seed != 42 {
		t.Errorf("Seed = %d, want 42", batch.Seed)
	}
	if len(batch.Records) != 4 {
		t.Fatalf("len(Records) = %d, want 4", len(batch.Records))
	}
	wantOrder := []gossip.Protocol{gossip.ProtocolCallOnce, gossip.ProtocolLearnNewSecrets, gossip.ProtocolCallOnce, gossip.ProtocolLearnNewSecrets}
	for i, rec := range batch.Records {
		if rec.Protocol != wantOrder[i] {
			t.Errorf("Records[%d].Protocol = %s, want %s", i, rec.Protocol, wantOrder[i])
		}
		if rec.BatchID != batch.BatchID {
			t.Errorf("Records[%d].BatchID = %q, want %q", i, rec.BatchID, batch.BatchID)
		}
		if rec.TotalMessagesKnown > 49 {
			t.Errorf("Records[%d].TotalMessagesKnown = %d, exceeds 7*7", i, rec.TotalMessagesKnown)
		}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("report has %d lines, want 4", len(lines))
	}
}

func TestRunSameSeedSameResults(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	run := func(name string) batchOutput {
		out, err := execute(t, "run", "--json", "--seed", "7", "--trials", "1",
			"--format", "jsonl", "--out", filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		var batch batchOutput
		if err := json.Unmarshal([]byte(out), &batch); err != nil {
			t.Fatalf("run output is not JSON: %v", err)
		}
		return batch
	}

	a, b := run("a.jsonl"), run("b.jsonl")
	if len(a.Records) != len(b.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(a.Records), len(b.Records))
	}
	for i := range a.Records {
		if a.Records[i].RoundsTaken != b.Records[i].RoundsTaken ||
			a.Records[i].TotalContacts != b.Records[i].TotalContacts {
			t.Errorf("record %d differs between runs with the same seed: %+v vs %+v",
				i, a.Records[i].Result, b.Records[i].Result)
		}
	}
}

func TestRunTextReport(t *testing.T) {
	isolateHome(t)
	outPath := filepath.Join(t.TempDir(), "results.txt")

	out, err := execute(t, "run", "--seed", "1", "--trials", "1", "--protocols", "ANY", "--out", outPath)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "ANY") {
		t.Errorf("summary missing protocol row:\n%s", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	text := string(data)
	for _, want := range []string{"Protocol: ANY\n", "Rounds taken: ", "Average contacts per agent: ", "Total messages known: "} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestRunJSONLDefaultPath(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	t.Chdir(dir)

	if _, err := execute(t, "run", "--seed", "1", "--trials", "1", "--protocols", "ANY", "--format", "jsonl"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, constants.DefaultJSONLFile))
	if err != nil {
		t.Fatalf("JSONL report not written to %s: %v", constants.DefaultJSONLFile, err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Errorf("report line is not JSON: %v (%q)", err, data)
	}
	if _, err := os.Stat(filepath.Join(dir, constants.DefaultResultsFile)); !os.IsNotExist(err) {
		t.Errorf("%s should not be created for --format jsonl", constants.DefaultResultsFile)
	}
}

func TestRunJSONLFromEnvFormat(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GOSSIP_OUTPUT_FORMAT", "jsonl")

	if _, err := execute(t, "run", "--seed", "2", "--trials", "1", "--protocols", "CO"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, constants.DefaultJSONLFile)); err != nil {
		t.Errorf("JSONL report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, constants.DefaultResultsFile)); !os.IsNotExist(err) {
		t.Errorf("%s should not be created when GOSSIP_OUTPUT_FORMAT=jsonl", constants.DefaultResultsFile)
	}
}

func TestRunUnknownProtocol(t *testing.T) {
	isolateHome(t)
	outPath := filepath.Join(t.TempDir(), "results.txt")

	_, err := execute(t, "run", "--protocols", "GOSSIP", "--out", outPath)
	if !errors.Is(err, gossip.ErrUnknownProtocol) {
		t.Fatalf("err = %v, want ErrUnknownProtocol", err)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Errorf("report file should not be created for an invalid run")
	}
}

func TestRunInvalidAgents(t *testing.T) {
	isolateHome(t)
	_, err := execute(t, "run", "--agents", "0", "--out", filepath.Join(t.TempDir(), "r.txt"))
	if !errors.Is(err, gossip.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestRunSQLiteThenHistory(t *testing.T) {
	isolateHome(t)
	dataDir := t.TempDir()

	if _, err := execute(t, "run", "--seed", "3", "--trials", "2", "--format", "sqlite", "--out", dataDir); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out, err := execute(t, "history", "--json", "--data-dir", dataDir)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var batches []store.BatchInfo
	if err := json.Unmarshal([]byte(out), &batches); err != nil {
		t.Fatalf("history output is not JSON: %v (%q)", err, out)
	}
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	if batches[0].Records != 8 {
		t.Errorf("Records = %d, want 8 (2 trials x 4 protocols)", batches[0].Records)
	}

	out, err = execute(t, "history", "--data-dir", dataDir, "--batch", batches[0].ID)
	if err != nil {
		t.Fatalf("history --batch failed: %v", err)
	}
	if !strings.Contains(out, "SPI") {
		t.Errorf("batch listing missing SPI row:\n%s", out)
	}

	if _, err := execute(t, "history", "--data-dir", dataDir, "--batch", "missing"); err == nil {
		t.Error("expected error for unknown batch")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := execute(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execute(t, "config", "init", "--config", path); err == nil {
		t.Error("expected error when config already exists")
	}
	if _, err := execute(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "agents: 7") {
		t.Errorf("config show missing default agents:\n%s", out)
	}
}
