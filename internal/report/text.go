package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// TextSink writes records in the line-oriented key:value format.
type TextSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewTextSink writes to w. Closing the sink does not close w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// CreateTextFile truncates or creates path and writes records to it.
func CreateTextFile(path string) (*TextSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating report file: %w", err)
	}
	return &TextSink{w: f, closer: f}, nil
}

// Write appends one record block followed by a blank line.
func (s *TextSink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Protocol: %s\n", rec.Protocol)
	fmt.Fprintf(&b, "Rounds taken: %d\n", rec.RoundsTaken)
	fmt.Fprintf(&b, "Average contacts per agent: %s\n", formatReal(rec.AverageContactsPerAgent))
	fmt.Fprintf(&b, "Total messages known: %d\n", rec.TotalMessagesKnown)
	b.WriteString("\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("writing text record: %w", err)
	}
	return nil
}

// Close closes the underlying file when the sink owns one.
func (s *TextSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// formatReal prints the shortest exact representation and always keeps a
// decimal point, so whole averages read "2.0" rather than "2".
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
