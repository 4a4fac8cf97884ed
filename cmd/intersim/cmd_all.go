package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/intersim/internal/simulation"
)

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run the initial scenario, then the randomized suite",
		Long: `Run the initial scenario (S->W, W->E, N->S on one intersection), then the
randomized suite, then print an aggregate verdict. This is what intersim does
with no subcommand. The suite runs even if the initial scenario deadlocks.`,
		Args: cobra.NoArgs,
		RunE: runAll,
	}
}

type allJSON struct {
	Initial resultJSON `json:"initial"`
	Suite   suiteJSON  `json:"suite"`
	Passed  bool       `json:"passed"`
}

func runAll(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	a.printf("=== Starting intersection simulation ===\n\n")

	initial, err := a.runTrial(ctx, simulation.InitialScenario())
	if err != nil {
		return err
	}
	if initial.Passed() {
		a.printf("Initial simulation passed.\n\n")
	} else {
		a.failf("Deadlock in the initial simulation!\n\n")
	}

	suite, err := a.runSuite(ctx, a.cfg.SuiteOptions())
	if err != nil {
		return err
	}

	if a.json {
		return writeJSON(cmd.OutOrStdout(), allJSON{
			Initial: newResultJSON(initial),
			Suite:   newSuiteJSON(suite),
			Passed:  initial.Passed() && suite.Passed(),
		})
	}
	a.printf("=== All simulations complete ===\n")
	return nil
}
