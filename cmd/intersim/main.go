package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signalContext()
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "intersim",
		Short: "Four-way intersection concurrency simulator",
		Long: `intersim runs vehicles through a four-way intersection guarded by a monitor
and a polling traffic-light controller, and reports whether every vehicle
crossed before the deadlock timeout.

With no subcommand it runs the initial three-vehicle scenario followed by
the randomized suite.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAll,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory (holds .intersim/)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (default from config)")
	rootCmd.PersistentFlags().Bool("record", false, "Record runs to .intersim/intersim.db")

	rootCmd.AddCommand(
		newAllCmd(),
		newRunCmd(),
		newSuiteCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// signalContext is cancelled on the first interrupt so in-flight runs wind
// down and report instead of the process dying mid-run.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
