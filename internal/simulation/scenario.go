package simulation

import (
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/intersim/internal/intersection"
)

// TrialSpec describes the vehicles of one trial.
type TrialSpec struct {
	Name  string
	Moves []intersection.Move

	// Shared puts every vehicle on one intersection. When false each
	// vehicle gets a private intersection of its own and the vehicles
	// never contend with each other.
	Shared bool
}

// Validate checks that the spec has at least one well-formed move.
func (s TrialSpec) Validate() error {
	if len(s.Moves) == 0 {
		return fmt.Errorf("trial %q has no vehicles", s.Name)
	}
	for i, m := range s.Moves {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("trial %q vehicle %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}

// InitialScenario is the fixed opening run: three vehicles sharing one
// intersection.
func InitialScenario() TrialSpec {
	return TrialSpec{
		Name: "Initial simulation",
		Moves: []intersection.Move{
			{From: intersection.South, To: intersection.West},
			{From: intersection.West, To: intersection.East},
			{From: intersection.North, To: intersection.South},
		},
		Shared: true,
	}
}

// ParseTrial builds a trial from moves written as "S:W", "S->W" or "S-W".
func ParseTrial(name string, moves []string, shared bool) (TrialSpec, error) {
	spec := TrialSpec{Name: name, Shared: shared}
	for _, s := range moves {
		m, err := intersection.ParseMove(s)
		if err != nil {
			return TrialSpec{}, err
		}
		spec.Moves = append(spec.Moves, m)
	}
	if err := spec.Validate(); err != nil {
		return TrialSpec{}, err
	}
	return spec, nil
}

// RandomTrial draws between minVehicles and maxVehicles (inclusive) moves
// whose destination differs from their origin.
func RandomTrial(rng *rand.Rand, name string, minVehicles, maxVehicles int, shared bool) TrialSpec {
	n := minVehicles
	if maxVehicles > minVehicles {
		n += rng.IntN(maxVehicles - minVehicles + 1)
	}

	dirs := intersection.Directions
	moves := make([]intersection.Move, n)
	for i := range moves {
		from := dirs[rng.IntN(len(dirs))]
		to := from
		for to == from {
			to = dirs[rng.IntN(len(dirs))]
		}
		moves[i] = intersection.Move{From: from, To: to}
	}
	return TrialSpec{Name: name, Moves: moves, Shared: shared}
}

// scenarioFile is the YAML layout accepted by LoadScenario.
type scenarioFile struct {
	Name     string              `yaml:"name"`
	Shared   *bool               `yaml:"shared"`
	Vehicles []intersection.Move `yaml:"vehicles"`
}

// LoadScenario reads a trial from a YAML file:
//
//	name: rush-hour
//	shared: true
//	vehicles:
//	  - {from: S, to: W}
//	  - {from: N, to: E}
//
// shared defaults to true.
func LoadScenario(path string) (TrialSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrialSpec{}, fmt.Errorf("reading scenario file: %w", err)
	}

	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return TrialSpec{}, fmt.Errorf("parsing scenario file: %w", err)
	}

	spec := TrialSpec{Name: f.Name, Moves: f.Vehicles, Shared: true}
	if f.Shared != nil {
		spec.Shared = *f.Shared
	}
	if spec.Name == "" {
		spec.Name = path
	}
	if err := spec.Validate(); err != nil {
		return TrialSpec{}, err
	}
	return spec, nil
}
