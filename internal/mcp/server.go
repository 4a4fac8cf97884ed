// Package mcp provides an MCP (Model Context Protocol) server for intersim.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/intersim/internal/ratelimit"
	"github.com/nvandessel/intersim/internal/simulation"
	"github.com/nvandessel/intersim/internal/store"
)

// Server wraps the MCP SDK server and exposes simulation runs as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	root         string
	runner       *simulation.Runner
	suite        simulation.SuiteOptions
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "intersim")
	Version string // Server version
	Root    string // Project root directory

	Settings simulation.Settings
	Suite    simulation.SuiteOptions

	// Record stores every run the tools execute.
	Record bool

	// Logger receives the simulation transcript. Stdout belongs to the
	// transport, so this must not write there.
	Logger *slog.Logger
}

// NewServer creates a new MCP server with intersim tools.
func NewServer(cfg *Config) (*Server, error) {
	runStore, err := store.NewSQLiteRunStore(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to create run store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	opts := []simulation.RunnerOption{simulation.WithLogger(cfg.Logger)}
	if cfg.Record {
		opts = append(opts, simulation.WithRecorder(runStore))
	}

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		root:         cfg.Root,
		runner:       simulation.NewRunner(cfg.Settings, opts...),
		suite:        cfg.Suite,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.Root),
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	err := s.store.Close()
	if auditErr := s.auditLogger.Close(); err == nil {
		err = auditErr
	}
	return err
}
