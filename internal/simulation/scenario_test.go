package simulation_test

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/intersim/internal/intersection"
	"github.com/nvandessel/intersim/internal/simulation"
)

func TestInitialScenario_Moves(t *testing.T) {
	spec := simulation.InitialScenario()
	assert.True(t, spec.Shared)
	assert.Equal(t, []intersection.Move{
		{From: intersection.South, To: intersection.West},
		{From: intersection.West, To: intersection.East},
		{From: intersection.North, To: intersection.South},
	}, spec.Moves)
}

func TestRandomTrial(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seen := make(map[int]bool)

	for i := 0; i < 200; i++ {
		spec := simulation.RandomTrial(rng, "r", 3, 7, false)
		require.NoError(t, spec.Validate())
		assert.GreaterOrEqual(t, len(spec.Moves), 3)
		assert.LessOrEqual(t, len(spec.Moves), 7)
		seen[len(spec.Moves)] = true
		for _, m := range spec.Moves {
			assert.NotEqual(t, m.From, m.To)
		}
	}
	assert.Len(t, seen, 5, "every vehicle count from 3 to 7 should occur")
}

func TestRandomTrial_Deterministic(t *testing.T) {
	a := simulation.RandomTrial(rand.New(rand.NewPCG(42, 42)), "a", 3, 7, true)
	b := simulation.RandomTrial(rand.New(rand.NewPCG(42, 42)), "a", 3, 7, true)
	assert.Equal(t, a, b)
}

func TestLoadScenario(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantName   string
		wantShared bool
		wantMoves  int
		wantErr    bool
	}{
		{
			name:       "full file",
			content:    "name: rush-hour\nshared: false\nvehicles:\n  - {from: S, to: W}\n  - {from: north, to: east}\n",
			wantName:   "rush-hour",
			wantShared: false,
			wantMoves:  2,
		},
		{
			name:       "shared defaults to true",
			content:    "name: solo\nvehicles:\n  - {from: W, to: E}\n",
			wantName:   "solo",
			wantShared: true,
			wantMoves:  1,
		},
		{
			name:    "no vehicles",
			content: "name: empty\n",
			wantErr: true,
		},
		{
			name:    "u-turn",
			content: "vehicles:\n  - {from: S, to: S}\n",
			wantErr: true,
		},
		{
			name:    "unknown direction",
			content: "vehicles:\n  - {from: S, to: up}\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			spec, err := simulation.LoadScenario(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, spec.Name)
			assert.Equal(t, tt.wantShared, spec.Shared)
			assert.Len(t, spec.Moves, tt.wantMoves)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := simulation.LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseTrial(t *testing.T) {
	spec, err := simulation.ParseTrial("cli", []string{"S:W", "n->e", "west-south"}, false)
	require.NoError(t, err)
	assert.Equal(t, "cli", spec.Name)
	assert.False(t, spec.Shared)
	assert.Equal(t, []intersection.Move{
		{From: intersection.South, To: intersection.West},
		{From: intersection.North, To: intersection.East},
		{From: intersection.West, To: intersection.South},
	}, spec.Moves)

	_, err = simulation.ParseTrial("cli", []string{"S:S"}, true)
	assert.ErrorIs(t, err, intersection.ErrSameDirection)

	_, err = simulation.ParseTrial("cli", []string{"S:Q"}, true)
	assert.ErrorIs(t, err, intersection.ErrInvalidDirection)

	_, err = simulation.ParseTrial("cli", nil, true)
	assert.Error(t, err)
}
