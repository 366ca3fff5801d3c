// Package logging provides leveled logging and round tracing for gossip.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for per-round JSONL traces (.gossip/rounds.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/gossip"
)

// LevelTrace is a custom slog level below Debug. At this level every
// simulated round is written to the trace file.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w through a tint
// console handler. Pass noColor when w is not a terminal.
func NewLogger(level string, w io.Writer, noColor bool) *slog.Logger {
	lvl := ParseLevel(level)
	handler := tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRC")
				}
			}
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

// TraceLogger writes one JSONL line per simulated round. It implements
// gossip.RoundTracer and is safe for concurrent use. A nil TraceLogger is
// safe to use; all methods are no-ops on nil receiver.
type TraceLogger struct {
	mu   sync.Mutex
	file *os.File
	run  string
}

var _ gossip.RoundTracer = (*TraceLogger)(nil)

// NewTraceLogger creates a trace logger writing to dir/rounds.jsonl.
// Below "trace" level it returns nil and no file is created.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) != LevelTrace {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.RoundTraceFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{file: f}
}

// SetRun tags subsequent events with a run label (e.g. "batch/trial").
func (tl *TraceLogger) SetRun(label string) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	tl.run = label
	tl.mu.Unlock()
}

// TraceRound appends ev as a single JSONL line. Safe to call on nil receiver.
func (tl *TraceLogger) TraceRound(ev gossip.RoundEvent) {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file == nil {
		return
	}

	entry := struct {
		Run string `json:"run,omitempty"`
		gossip.RoundEvent
	}{Run: tl.run, RoundEvent: ev}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file != nil {
		tl.file.Close()
		tl.file = nil
	}
}
