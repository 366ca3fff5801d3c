package gossip

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrUnknownProtocol is returned for protocol names outside ANY, CO, SPI and LNS.
	ErrUnknownProtocol = errors.New("unknown protocol")

	// ErrNoSuchAgent is returned when an agent id is outside 0..N-1.
	ErrNoSuchAgent = errors.New("no such agent")

	// ErrSelfContact is returned when an agent is asked to call itself.
	ErrSelfContact = errors.New("agent cannot contact itself")
)

// ConfigError reports an engine setting rejected at construction.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }
