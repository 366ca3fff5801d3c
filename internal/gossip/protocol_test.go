package gossip

import (
	"errors"
	"testing"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want Protocol
	}{
		{"ANY", ProtocolAny},
		{"any", ProtocolAny},
		{"CO", ProtocolCallOnce},
		{"call-once", ProtocolCallOnce},
		{"SPI", ProtocolSpider},
		{"Spider", ProtocolSpider},
		{" lns ", ProtocolLearnNewSecrets},
		{"LEARN-NEW-SECRETS", ProtocolLearnNewSecrets},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseProtocol_Unknown(t *testing.T) {
	for _, in := range []string{"", "XYZ", "ANYONE"} {
		_, err := ParseProtocol(in)
		if !errors.Is(err, ErrUnknownProtocol) {
			t.Errorf("ParseProtocol(%q): expected ErrUnknownProtocol, got %v", in, err)
		}
	}
}

func TestParseProtocols(t *testing.T) {
	got, err := ParseProtocols([]string{"lns", "ANY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != ProtocolLearnNewSecrets || got[1] != ProtocolAny {
		t.Errorf("unexpected protocols: %v", got)
	}

	if _, err := ParseProtocols([]string{"ANY", "nope"}); !errors.Is(err, ErrUnknownProtocol) {
		t.Errorf("expected ErrUnknownProtocol, got %v", err)
	}
}

func TestAllProtocols(t *testing.T) {
	all := AllProtocols()
	if len(all) != 4 {
		t.Fatalf("expected 4 protocols, got %d", len(all))
	}
	for _, p := range all {
		if !p.Valid() {
			t.Errorf("protocol %s should be valid", p)
		}
		if p.Description() == "unknown protocol" {
			t.Errorf("protocol %s has no description", p)
		}
	}
	if Protocol("XYZ").Valid() {
		t.Error("XYZ should not be valid")
	}
}
