package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	Iterations  int
	MinVehicles int
	MaxVehicles int

	// Seed drives vehicle generation. Zero picks a time-based seed, which
	// is reported back in SuiteResult.Seed.
	Seed uint64

	// Shared makes all vehicles of an iteration contend for one
	// intersection. The default gives every vehicle its own.
	Shared bool

	// BeforeTrial, when non-nil, is called before each iteration runs.
	BeforeTrial func(iteration int, spec TrialSpec)

	// AfterTrial, when non-nil, is called with each iteration's result.
	AfterTrial func(iteration int, result Result)
}

// DefaultSuiteOptions returns five iterations of three to seven vehicles.
func DefaultSuiteOptions() SuiteOptions {
	return SuiteOptions{Iterations: 5, MinVehicles: 3, MaxVehicles: 7}
}

// Validate checks the iteration count and vehicle range.
func (o SuiteOptions) Validate() error {
	if o.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", o.Iterations)
	}
	if o.MinVehicles <= 0 || o.MaxVehicles < o.MinVehicles {
		return fmt.Errorf("invalid vehicle range [%d, %d]", o.MinVehicles, o.MaxVehicles)
	}
	return nil
}

// RunSuite runs randomized trials and stops at the first one that does not
// succeed. Failed runs are not retried.
func (r *Runner) RunSuite(ctx context.Context, opts SuiteOptions) (SuiteResult, error) {
	if err := opts.Validate(); err != nil {
		return SuiteResult{}, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := SuiteResult{Seed: seed}

	for i := 1; i <= opts.Iterations; i++ {
		spec := RandomTrial(rng, fmt.Sprintf("Test %d", i), opts.MinVehicles, opts.MaxVehicles, opts.Shared)
		if opts.BeforeTrial != nil {
			opts.BeforeTrial(i, spec)
		}

		trial, err := r.Build(spec)
		if err != nil {
			return out, fmt.Errorf("building iteration %d: %w", i, err)
		}
		res := r.Run(ctx, trial)
		out.Results = append(out.Results, res)

		if opts.AfterTrial != nil {
			opts.AfterTrial(i, res)
		}
		if !res.Passed() {
			r.logger.Warn("suite stopped at first failure", "iteration", i, "outcome", res.Outcome)
			break
		}
	}
	return out, nil
}
