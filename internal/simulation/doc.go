// Package simulation is the harness that runs vehicles through an
// intersection under a light controller and classifies each run.
//
// A Runner builds trials from TrialSpecs, starts one light controller per
// distinct intersection and one goroutine per vehicle, then polls for
// completion until the configured timeout. A run that outlives its timeout
// is reported as a suspected deadlock; stuck vehicles are left alone and
// only the controllers are cancelled.
//
// Usage:
//
//	r := simulation.NewRunner(simulation.DefaultSettings())
//	trial, err := r.Build(simulation.InitialScenario())
//	if err != nil { ... }
//	result := r.Run(ctx, trial)
//	if result.Outcome != simulation.OutcomeSuccess { ... }
//
// RunSuite repeats randomized trials and stops at the first failure.
package simulation
