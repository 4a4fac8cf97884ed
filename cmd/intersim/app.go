package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nvandessel/intersim/internal/config"
	"github.com/nvandessel/intersim/internal/logging"
	"github.com/nvandessel/intersim/internal/simulation"
	"github.com/nvandessel/intersim/internal/store"
)

// app is the state shared by the simulation commands.
type app struct {
	cfg    *config.Config
	root   string
	json   bool
	out    io.Writer // report and, in text mode, transcript
	errOut io.Writer // failure verdicts
	logger *slog.Logger
	events *logging.EventLog
	store  *store.SQLiteRunStore
	runner *simulation.Runner
}

// syncWriter serializes the report with transcript lines from vehicle
// goroutines that outlive a deadlocked run.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// newApp loads configuration, applies the global flags, and builds a runner.
func newApp(cmd *cobra.Command) (*app, error) {
	root, _ := cmd.Flags().GetString("root")
	jsonOut, _ := cmd.Flags().GetBool("json")
	level, _ := cmd.Flags().GetString("log-level")
	record, _ := cmd.Flags().GetBool("record")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level != "" {
		if err := cfg.Set("logging.level", level); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	a := &app{
		cfg:    cfg,
		root:   root,
		json:   jsonOut,
		out:    out,
		errOut: cmd.ErrOrStderr(),
	}

	// Stdout carries only the JSON document in --json mode.
	var transcript io.Writer = out
	if jsonOut {
		transcript = cmd.ErrOrStderr()
	}
	a.logger = logging.NewLogger(cfg.Logging.Level, transcript)
	a.events = logging.NewEventLog(store.LocalPath(root), cfg.Logging.Level)

	opts := []simulation.RunnerOption{
		simulation.WithLogger(a.logger),
		simulation.WithEventLog(a.events),
	}
	if record || cfg.History.Enabled {
		a.store, err = store.NewSQLiteRunStore(root)
		if err != nil {
			a.events.Close()
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		opts = append(opts, simulation.WithRecorder(a.store))
	}
	a.runner = simulation.NewRunner(cfg.Settings(), opts...)

	return a, nil
}

// Close releases the event log and run history.
func (a *app) Close() error {
	a.events.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// printf writes to the report unless --json is set.
func (a *app) printf(format string, args ...any) {
	if !a.json {
		fmt.Fprintf(a.out, format, args...)
	}
}

// failf writes a failure verdict to stderr unless --json is set.
func (a *app) failf(format string, args ...any) {
	if !a.json {
		fmt.Fprintf(a.errOut, format, args...)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
