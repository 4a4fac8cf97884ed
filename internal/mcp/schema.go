package mcp

import (
	"time"

	"github.com/nvandessel/intersim/internal/simulation"
	"github.com/nvandessel/intersim/internal/store"
)

// RunInput defines the input for the intersim_run tool.
type RunInput struct {
	Vehicles []string `json:"vehicles,omitempty" jsonschema:"Vehicle moves as origin:destination over N S W E, e.g. S:W. Defaults to the initial scenario S:W W:E N:S"`
	Scenario string   `json:"scenario,omitempty" jsonschema:"Path of a YAML scenario file inside the project root; cannot be combined with vehicles"`
	Private  bool     `json:"private,omitempty" jsonschema:"Give each vehicle its own intersection instead of sharing one"`
}

// RunOutput defines the output for the intersim_run tool.
type RunOutput struct {
	Run     RunSummary `json:"run" jsonschema:"The finished trial"`
	Message string     `json:"message" jsonschema:"Human-readable verdict"`
}

// SuiteInput defines the input for the intersim_suite tool.
type SuiteInput struct {
	Iterations int    `json:"iterations,omitempty" jsonschema:"Number of randomized trials (default from config, normally 5)"`
	Seed       uint64 `json:"seed,omitempty" jsonschema:"Random seed; 0 picks one from the clock"`
	Shared     bool   `json:"shared,omitempty" jsonschema:"Put all vehicles of a trial on one intersection"`
}

// SuiteOutput defines the output for the intersim_suite tool.
type SuiteOutput struct {
	Seed    uint64       `json:"seed" jsonschema:"Seed that reproduces this suite"`
	Passed  bool         `json:"passed" jsonschema:"Whether every trial succeeded"`
	Runs    []RunSummary `json:"runs" jsonschema:"Trials in order; the suite stops at the first failure"`
	Message string       `json:"message" jsonschema:"Human-readable verdict"`
}

// HistoryInput defines the input for the intersim_history tool.
type HistoryInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum runs to list (default 20)"`
	RunID string `json:"run_id,omitempty" jsonschema:"Show one run with its vehicles instead of listing"`
}

// HistoryOutput defines the output for the intersim_history tool.
type HistoryOutput struct {
	Runs     []store.RunRecord     `json:"runs" jsonschema:"Recorded runs, newest first"`
	Vehicles []store.VehicleRecord `json:"vehicles,omitempty" jsonschema:"Vehicles of the requested run"`
	Count    int                   `json:"count" jsonschema:"Number of runs returned"`
}

// RunSummary is a compact view of a simulation result.
type RunSummary struct {
	RunID     string           `json:"run_id"`
	Name      string           `json:"name"`
	Outcome   string           `json:"outcome"`
	ElapsedMs int64            `json:"elapsed_ms"`
	Shared    bool             `json:"shared"`
	Vehicles  []VehicleSummary `json:"vehicles"`
	Error     string           `json:"error,omitempty"`
}

// VehicleSummary is one vehicle's final state.
type VehicleSummary struct {
	ID       int    `json:"id"`
	Move     string `json:"move"`
	State    string `json:"state"`
	Departed bool   `json:"departed"`
}

func summarize(r simulation.Result) RunSummary {
	out := RunSummary{
		RunID:     r.RunID,
		Name:      r.Name,
		Outcome:   string(r.Outcome),
		ElapsedMs: r.Elapsed.Round(time.Millisecond).Milliseconds(),
		Shared:    r.Shared,
		Vehicles:  make([]VehicleSummary, 0, len(r.Vehicles)),
	}
	for _, v := range r.Vehicles {
		out.Vehicles = append(out.Vehicles, VehicleSummary{
			ID:       v.ID,
			Move:     v.Move.String(),
			State:    v.State.String(),
			Departed: v.Departed,
		})
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}
