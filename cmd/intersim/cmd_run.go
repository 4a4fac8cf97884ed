package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/intersim/internal/simulation"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single trial",
		Long: `Run one trial and report whether every vehicle crossed before the timeout.

Without flags this is the initial scenario: S->W, W->E and N->S sharing one
intersection.

Examples:
  intersim run                                # Initial scenario
  intersim run --vehicle S:W --vehicle N:E    # Custom vehicles
  intersim run --scenario rush-hour.yaml      # Vehicles from a YAML file
  intersim run --private                      # One intersection per vehicle`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, _ := cmd.Flags().GetString("scenario")
			vehicles, _ := cmd.Flags().GetStringArray("vehicle")
			private, _ := cmd.Flags().GetBool("private")

			spec := simulation.InitialScenario()
			var err error
			switch {
			case scenario != "":
				spec, err = simulation.LoadScenario(scenario)
			case len(vehicles) > 0:
				spec, err = simulation.ParseTrial("Custom simulation", vehicles, true)
			}
			if err != nil {
				return err
			}
			if private {
				spec.Shared = false
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.runTrial(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(cmd.OutOrStdout(), newResultJSON(res))
			}
			return nil
		},
	}

	cmd.Flags().String("scenario", "", "YAML file listing the vehicles")
	cmd.Flags().StringArray("vehicle", nil, "Vehicle move as origin:destination (repeatable)")
	cmd.Flags().Bool("private", false, "Give each vehicle its own intersection")
	cmd.MarkFlagsMutuallyExclusive("scenario", "vehicle")

	return cmd
}
