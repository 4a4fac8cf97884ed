package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/intersim/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with --record (or history.enabled in config), newest first.

Examples:
  intersim history                  # Last 20 runs
  intersim history --limit 5
  intersim history --run <run-id>   # One run with its vehicles`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			runID, _ := cmd.Flags().GetString("run")

			runStore, err := store.NewSQLiteRunStore(root)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer runStore.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if runID != "" {
				rec, vehicles, err := runStore.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(out, map[string]any{"run": rec, "vehicles": vehicles})
				}
				fmt.Fprintf(out, "%s  %s  %s  %s\n", rec.RunID, rec.Name, describeOutcome(rec.Outcome),
					rec.StartedAt.Local().Format(time.DateTime))
				if rec.Error != "" {
					fmt.Fprintf(out, "error: %s\n", rec.Error)
				}
				for _, v := range vehicles {
					fmt.Fprintf(out, "  vehicle %d %s->%s: %s (departed: %v)\n", v.Seq+1, v.From, v.To, v.State, v.Departed)
				}
				return nil
			}

			runs, err := runStore.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []store.RunRecord{}
				}
				return writeJSON(out, map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs. Use --record to record runs.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tNAME\tOUTCOME\tVEHICLES\tELAPSED\tRUN ID")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Name, describeOutcome(r.Outcome),
					r.Departed, r.Vehicles, r.Elapsed, r.RunID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", store.DefaultListLimit, "Maximum runs to list")
	cmd.Flags().String("run", "", "Show one run and its vehicles")

	return cmd
}
