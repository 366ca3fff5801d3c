package gossip

import (
	"fmt"
	"strings"
)

// Protocol names a contact-selection policy.
type Protocol string

const (
	ProtocolAny             Protocol = "ANY"
	ProtocolCallOnce        Protocol = "CO"
	ProtocolSpider          Protocol = "SPI"
	ProtocolLearnNewSecrets Protocol = "LNS"
)

// AllProtocols returns every supported protocol in canonical order.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolAny, ProtocolCallOnce, ProtocolSpider, ProtocolLearnNewSecrets}
}

// longNames maps the spelled-out protocol names accepted by ParseProtocol.
var longNames = map[string]Protocol{
	"CALL-ONCE":         ProtocolCallOnce,
	"SPIDER":            ProtocolSpider,
	"LEARN-NEW-SECRETS": ProtocolLearnNewSecrets,
}

// ParseProtocol resolves a protocol by short or long name, ignoring case.
// Unknown names return an error wrapping ErrUnknownProtocol.
func ParseProtocol(name string) (Protocol, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if p := Protocol(upper); p.Valid() {
		return p, nil
	}
	if p, ok := longNames[upper]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
}

// ParseProtocols resolves a list of names, failing on the first unknown one.
func ParseProtocols(names []string) ([]Protocol, error) {
	out := make([]Protocol, 0, len(names))
	for _, n := range names {
		p, err := ParseProtocol(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Valid reports whether p is one of the four supported protocols.
func (p Protocol) Valid() bool {
	_, ok := rules[p]
	return ok
}

// String returns the short protocol name.
func (p Protocol) String() string { return string(p) }

// LongName returns the spelled-out protocol name.
func (p Protocol) LongName() string {
	switch p {
	case ProtocolAny:
		return "ANY"
	case ProtocolCallOnce:
		return "CALL-ONCE"
	case ProtocolSpider:
		return "SPIDER"
	case ProtocolLearnNewSecrets:
		return "LEARN-NEW-SECRETS"
	default:
		return string(p)
	}
}

// Description returns a one-line summary of who may call whom.
func (p Protocol) Description() string {
	switch p {
	case ProtocolAny:
		return "any agent calls any other agent"
	case ProtocolCallOnce:
		return "an agent never calls the same peer twice"
	case ProtocolSpider:
		return "only token holders call; the callee loses its token"
	case ProtocolLearnNewSecrets:
		return "an agent only calls peers that know a secret it lacks"
	default:
		return "unknown protocol"
	}
}

// rule describes one protocol as three pluggable pieces. The engine always
// excludes the caller from the callee candidates, so the predicates never
// need to check for it.
type rule struct {
	// canCall filters eligible callers. nil means every agent may call.
	canCall func(a *Agent) bool

	// canReceive filters eligible callees for a given caller.
	canReceive func(caller, candidate *Agent) bool

	// afterExchange runs once the pair has exchanged secrets.
	afterExchange func(caller, callee *Agent)
}

var rules = map[Protocol]rule{
	ProtocolAny: {
		canReceive: func(_, _ *Agent) bool { return true },
	},
	ProtocolCallOnce: {
		canReceive: func(caller, candidate *Agent) bool {
			return !caller.HasContacted(candidate.id)
		},
		afterExchange: func(caller, callee *Agent) {
			caller.recordContact(callee.id)
			callee.recordContact(caller.id)
		},
	},
	ProtocolSpider: {
		canCall:    (*Agent).HasToken,
		canReceive: func(_, _ *Agent) bool { return true },
		afterExchange: func(_, callee *Agent) {
			callee.RevokeToken()
		},
	},
	ProtocolLearnNewSecrets: {
		canReceive: func(caller, candidate *Agent) bool {
			return candidate.knowsSomethingNewFor(caller)
		},
	},
}
