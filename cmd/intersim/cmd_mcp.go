package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/intersim/internal/config"
	"github.com/nvandessel/intersim/internal/logging"
	"github.com/nvandessel/intersim/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve simulation tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the
intersim_run, intersim_suite and intersim_history tools. The simulation
transcript goes to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			level, _ := cmd.Flags().GetString("log-level")
			record, _ := cmd.Flags().GetBool("record")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if level == "" {
				level = cfg.Logging.Level
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "intersim",
				Version:  version,
				Root:     root,
				Settings: cfg.Settings(),
				Suite:    cfg.SuiteOptions(),
				Record:   record || cfg.History.Enabled,
				Logger:   logging.NewLogger(level, cmd.ErrOrStderr()),
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}

			return server.Run(cmd.Context())
		},
	}
}
