package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/intersim/internal/simulation"
)

// resultJSON adds the error text that simulation.Result leaves out.
type resultJSON struct {
	simulation.Result
	Error string `json:"error,omitempty"`
}

func newResultJSON(r simulation.Result) resultJSON {
	out := resultJSON{Result: r}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type suiteJSON struct {
	Seed    uint64       `json:"seed"`
	Passed  bool         `json:"passed"`
	Results []resultJSON `json:"results"`
}

func newSuiteJSON(s simulation.SuiteResult) suiteJSON {
	out := suiteJSON{Seed: s.Seed, Passed: s.Passed(), Results: make([]resultJSON, 0, len(s.Results))}
	for _, r := range s.Results {
		out.Results = append(out.Results, newResultJSON(r))
	}
	return out
}

// runTrial runs spec between a "==== name ====" header and its verdict.
// A cancelled run is returned as an error; a deadlock is not.
func (a *app) runTrial(ctx context.Context, spec simulation.TrialSpec) (simulation.Result, error) {
	trial, err := a.runner.Build(spec)
	if err != nil {
		return simulation.Result{}, err
	}

	a.printf("==== %s ====\n", spec.Name)
	res := a.runner.Run(ctx, trial)
	a.printVerdict(res)

	if res.Outcome == simulation.OutcomeCancelled {
		return res, res.Err
	}
	return res, nil
}

// runSuite runs the randomized suite with per-iteration headers and the
// closing summary.
func (a *app) runSuite(ctx context.Context, opts simulation.SuiteOptions) (simulation.SuiteResult, error) {
	opts.BeforeTrial = func(i int, spec simulation.TrialSpec) {
		a.printf("---- Test iteration %d ----\n", i)
		a.printf("==== %s ====\n", spec.Name)
	}
	opts.AfterTrial = func(i int, res simulation.Result) {
		a.printVerdict(res)
	}

	sr, err := a.runner.RunSuite(ctx, opts)
	if err != nil {
		return sr, err
	}
	if n := len(sr.Results); n > 0 && sr.Results[n-1].Outcome == simulation.OutcomeCancelled {
		return sr, sr.Results[n-1].Err
	}

	if sr.Passed() {
		a.printf("No deadlock detected in these tests.\n")
	} else {
		a.failf("Deadlock detected during testing!\n")
	}
	a.printf("Testing complete (seed %d).\n\n", sr.Seed)
	return sr, nil
}

func (a *app) printVerdict(r simulation.Result) {
	switch r.Outcome {
	case simulation.OutcomeSuccess:
		a.printf("All vehicles crossed successfully in %s. Simulation complete.\n\n", r.Elapsed.Round(time.Millisecond))
	case simulation.OutcomeDeadlock:
		a.failf("Not all vehicles finished within %s. Possible deadlock.\n", r.Settings.Timeout)
		for _, v := range r.Stuck() {
			a.failf("  vehicle %d %s: %s\n", v.ID, v.Move, v.State)
		}
		if !r.ControllersStopped {
			a.failf("  a light controller did not stop within %s\n", r.Settings.ShutdownGrace)
		}
		a.failf("\n")
	case simulation.OutcomeCancelled:
		a.failf("Simulation cancelled.\n\n")
	case simulation.OutcomeError:
		a.failf("Simulation failed: %v\n\n", r.Err)
	}
}

// describeOutcome is a one-word verdict for tables.
func describeOutcome(outcome string) string {
	switch simulation.Outcome(outcome) {
	case simulation.OutcomeSuccess:
		return "ok"
	case simulation.OutcomeDeadlock:
		return "DEADLOCK"
	default:
		return fmt.Sprint(outcome)
	}
}
