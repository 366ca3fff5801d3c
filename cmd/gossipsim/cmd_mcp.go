package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/logging"
	"github.com/nvandessel/gossip/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve simulation tools over MCP (stdio)",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
gossip_run, gossip_protocols and gossip_history tools.

Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			memory, _ := cmd.Flags().GetBool("memory")
			level, _ := cmd.Flags().GetString("log-level")

			if memory {
				dataDir = ""
			} else if dataDir == "" {
				dataDir = filepath.Join(root, constants.DataDirName)
			}

			logger := logging.NewLogger(level, os.Stderr, true)

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "gossipsim",
				Version: version,
				DataDir: dataDir,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer srv.Close()

			ctx, cancel := withSignalCancel(cmd.Context())
			defer cancel()

			logger.Info("mcp server started", "data_dir", dataDir)
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("data-dir", "", "Result store directory (default <root>/.gossip)")
	cmd.Flags().Bool("memory", false, "Keep results in memory instead of SQLite")
	cmd.Flags().String("log-level", "info", "Log level: info, debug, trace")

	return cmd
}
