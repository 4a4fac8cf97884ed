// Package store persists simulation run history.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/intersim/internal/simulation"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one stored trial.
type RunRecord struct {
	RunID              string        `json:"run_id"`
	Name               string        `json:"name"`
	Outcome            string        `json:"outcome"`
	StartedAt          time.Time     `json:"started_at"`
	Elapsed            time.Duration `json:"elapsed"`
	Timeout            time.Duration `json:"timeout"`
	CheckInterval      time.Duration `json:"check_interval"`
	Shared             bool          `json:"shared"`
	Vehicles           int           `json:"vehicles"`
	Departed           int           `json:"departed"`
	Signals            int64         `json:"signals"`
	ControllersStopped bool          `json:"controllers_stopped"`
	Error              string        `json:"error,omitempty"`
}

// VehicleRecord is one vehicle's final state within a stored run.
type VehicleRecord struct {
	Seq      int    `json:"seq"`
	From     string `json:"from"`
	To       string `json:"to"`
	State    string `json:"state"`
	Departed bool   `json:"departed"`
}

// RunStore records and lists runs.
type RunStore interface {
	RecordRun(ctx context.Context, r simulation.Result) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetRun(ctx context.Context, runID string) (*RunRecord, []VehicleRecord, error)
	Close() error
}

// NewRunRecord flattens a simulation result.
func NewRunRecord(r simulation.Result) RunRecord {
	rec := RunRecord{
		RunID:              r.RunID,
		Name:               r.Name,
		Outcome:            string(r.Outcome),
		StartedAt:          r.Started,
		Elapsed:            r.Elapsed,
		Timeout:            r.Settings.Timeout,
		CheckInterval:      r.Settings.CheckInterval,
		Shared:             r.Shared,
		Vehicles:           len(r.Vehicles),
		Signals:            r.Signals,
		ControllersStopped: r.ControllersStopped,
	}
	for _, v := range r.Vehicles {
		if v.Departed {
			rec.Departed++
		}
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}
