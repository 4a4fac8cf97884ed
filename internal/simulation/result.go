package simulation

import (
	"time"

	"github.com/nvandessel/intersim/internal/intersection"
	"github.com/nvandessel/intersim/internal/vehicle"
)

// Outcome classifies a finished run.
type Outcome string

const (
	// OutcomeSuccess means every vehicle departed before the timeout.
	OutcomeSuccess Outcome = "success"
	// OutcomeDeadlock means at least one vehicle was still running at the timeout.
	OutcomeDeadlock Outcome = "deadlock"
	// OutcomeCancelled means the caller cancelled the run.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeError means a vehicle failed for a reason other than cancellation.
	OutcomeError Outcome = "error"
)

// VehicleResult is a vehicle's final position in its lifecycle.
type VehicleResult struct {
	ID       int               `json:"id"`
	Move     intersection.Move `json:"move"`
	State    vehicle.State     `json:"state"`
	Departed bool              `json:"departed"`
}

// Result captures one trial.
type Result struct {
	RunID    string          `json:"run_id"`
	Name     string          `json:"name"`
	Outcome  Outcome         `json:"outcome"`
	Started  time.Time       `json:"started"`
	Elapsed  time.Duration   `json:"elapsed"`
	Settings Settings        `json:"settings"`
	Shared   bool            `json:"shared"`
	Vehicles []VehicleResult `json:"vehicles"`

	// ControllersStopped is false if a light controller outlived the
	// shutdown grace period.
	ControllersStopped bool  `json:"controllers_stopped"`
	Signals            int64 `json:"signals"`

	Err error `json:"-"`
}

// Passed reports whether the run succeeded.
func (r Result) Passed() bool { return r.Outcome == OutcomeSuccess }

// Stuck returns the vehicles that had not departed when the run ended.
func (r Result) Stuck() []VehicleResult {
	var out []VehicleResult
	for _, v := range r.Vehicles {
		if !v.Departed {
			out = append(out, v)
		}
	}
	return out
}

// SuiteResult captures a randomized suite.
type SuiteResult struct {
	Seed    uint64   `json:"seed"`
	Results []Result `json:"results"`
}

// Passed reports whether no iteration failed.
func (s SuiteResult) Passed() bool {
	for _, r := range s.Results {
		if !r.Passed() {
			return false
		}
	}
	return true
}
