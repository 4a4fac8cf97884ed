package simulation_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/intersim/internal/simulation"
)

func TestRunSuite_LiteralPrivateIntersections(t *testing.T) {
	r := simulation.NewRunner(fastSettings())
	opts := simulation.DefaultSuiteOptions()
	opts.Seed = 2024

	var started []int
	opts.BeforeTrial = func(i int, spec simulation.TrialSpec) {
		started = append(started, i)
		assert.False(t, spec.Shared)
	}

	res, err := r.RunSuite(t.Context(), opts)
	require.NoError(t, err)

	assert.True(t, res.Passed())
	assert.Equal(t, uint64(2024), res.Seed)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, started)
	require.Len(t, res.Results, 5)
	for i, result := range res.Results {
		simulation.AssertSuccess(t, result)
		assert.Equal(t, fmt.Sprintf("Test %d", i+1), result.Name)
		assert.GreaterOrEqual(t, len(result.Vehicles), 3)
		assert.LessOrEqual(t, len(result.Vehicles), 7)
	}
}

func TestRunSuite_Shared(t *testing.T) {
	r := simulation.NewRunner(fastSettings())
	opts := simulation.DefaultSuiteOptions()
	opts.Seed = 99
	opts.Shared = true

	res, err := r.RunSuite(t.Context(), opts)
	require.NoError(t, err)
	assert.True(t, res.Passed())
	for _, result := range res.Results {
		assert.True(t, result.Shared)
	}
}

func TestRunSuite_StopsAtFirstFailure(t *testing.T) {
	settings := fastSettings()
	settings.Timeout = 100 * time.Millisecond
	r := simulation.NewRunner(settings, simulation.WithPolicy(deny))

	var after []simulation.Outcome
	opts := simulation.DefaultSuiteOptions()
	opts.Seed = 5
	opts.AfterTrial = func(i int, result simulation.Result) { after = append(after, result.Outcome) }

	res, err := r.RunSuite(t.Context(), opts)
	require.NoError(t, err)

	assert.False(t, res.Passed())
	require.Len(t, res.Results, 1)
	assert.Equal(t, []simulation.Outcome{simulation.OutcomeDeadlock}, after)
}

func TestRunSuite_RandomSeedIsReported(t *testing.T) {
	r := simulation.NewRunner(fastSettings())
	opts := simulation.DefaultSuiteOptions()
	opts.Iterations = 1

	res, err := r.RunSuite(t.Context(), opts)
	require.NoError(t, err)
	assert.NotZero(t, res.Seed)
}

func TestRunSuite_InvalidOptions(t *testing.T) {
	r := simulation.NewRunner(fastSettings())

	_, err := r.RunSuite(t.Context(), simulation.SuiteOptions{Iterations: 0, MinVehicles: 3, MaxVehicles: 7})
	assert.Error(t, err)

	_, err = r.RunSuite(t.Context(), simulation.SuiteOptions{Iterations: 1, MinVehicles: 5, MaxVehicles: 3})
	assert.Error(t, err)
}
