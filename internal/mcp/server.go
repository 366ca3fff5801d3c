// Package mcp provides an MCP (Model Context Protocol) server for gossip.
// It exposes the simulator as tools so an agent can run batches and read
// stored results over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/gossip/internal/ratelimit"
	"github.com/nvandessel/gossip/internal/store"
)

// Server wraps the MCP SDK server and provides gossip-specific tools.
type Server struct {
	server *sdk.Server
	store  store.ResultStore
	logger *slog.Logger
	limits ratelimit.ToolLimits
	seed   func() uint64
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "gossipsim")
	Version string // Server version

	// DataDir holds the SQLite result store. Empty keeps results in memory.
	DataDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with gossip tools.
func NewServer(cfg *Config) (*Server, error) {
	var results store.ResultStore
	if cfg.DataDir != "" {
		s, err := store.NewSQLiteResultStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open result store: %w", err)
		}
		results = s
	} else {
		results = store.NewMemoryResultStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server: mcpServer,
		store:  results,
		logger: logger,
		limits: ratelimit.NewToolLimits(),
		seed:   timeSeed,
	}
	s.registerTools()

	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if closeErr := s.store.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close releases the result store.
func (s *Server) Close() error {
	return s.store.Close()
}
