package simulation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/intersim/internal/intersection"
	"github.com/nvandessel/intersim/internal/lights"
	"github.com/nvandessel/intersim/internal/logging"
	"github.com/nvandessel/intersim/internal/vehicle"
)

// Settings are the timing constants of a run.
type Settings struct {
	CheckInterval time.Duration `json:"check_interval"`
	BaseDelay     time.Duration `json:"base_delay"`
	CrossingFloor time.Duration `json:"crossing_floor"`
	Timeout       time.Duration `json:"timeout"`
	PollInterval  time.Duration `json:"poll_interval"`
	ShutdownGrace time.Duration `json:"shutdown_grace"`
}

// DefaultSettings returns the standard timings: 500ms light checks, up to
// 500ms of crossing jitter on a 200ms floor, and a 10s deadlock timeout
// polled every 100ms.
func DefaultSettings() Settings {
	return Settings{
		CheckInterval: lights.DefaultCheckInterval,
		BaseDelay:     500 * time.Millisecond,
		CrossingFloor: vehicle.CrossingFloor,
		Timeout:       10 * time.Second,
		PollInterval:  100 * time.Millisecond,
		ShutdownGrace: 2 * time.Second,
	}
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, r Result) error
}

// Trial is a built, runnable set of vehicles.
type Trial struct {
	RunID    string
	Spec     TrialSpec
	Vehicles []*vehicle.Vehicle

	intersections []*intersection.Intersection
}

// NewTrial wraps already constructed vehicles. The intersections to control
// are taken from the vehicles, in order of first appearance.
func NewTrial(spec TrialSpec, vehicles []*vehicle.Vehicle) Trial {
	t := Trial{RunID: uuid.NewString(), Spec: spec, Vehicles: vehicles}
	seen := make(map[*intersection.Intersection]bool)
	for _, v := range vehicles {
		x := v.Intersection()
		if x == nil || seen[x] {
			continue
		}
		seen[x] = true
		t.intersections = append(t.intersections, x)
	}
	return t
}

// Intersections returns the distinct intersections the trial's vehicles use.
func (t Trial) Intersections() []*intersection.Intersection {
	return t.intersections
}

// Runner builds and runs trials.
type Runner struct {
	settings    Settings
	logger      *slog.Logger
	events      *logging.EventLog
	observers   []intersection.Observer
	policy      intersection.Policy
	recorder    Recorder
	vehicleOpts []vehicle.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the transcript logger shared by intersections, vehicles and controllers.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEventLog journals every monitor event, tagged with run ID and trial name.
func WithEventLog(el *logging.EventLog) RunnerOption {
	return func(r *Runner) { r.events = el }
}

// WithObserver attaches an observer to every intersection the runner builds.
func WithObserver(o intersection.Observer) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithPolicy sets the admission policy of built intersections.
func WithPolicy(p intersection.Policy) RunnerOption {
	return func(r *Runner) { r.policy = p }
}

// WithRecorder persists each finished run.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithVehicleOptions appends options applied to every built vehicle.
func WithVehicleOptions(opts ...vehicle.Option) RunnerOption {
	return func(r *Runner) { r.vehicleOpts = append(r.vehicleOpts, opts...) }
}

// NewRunner creates a runner with the given timings.
func NewRunner(settings Settings, opts ...RunnerOption) *Runner {
	r := &Runner{
		settings: settings,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the runner's timings.
func (r *Runner) Settings() Settings { return r.settings }

// Build constructs the intersections and vehicles of spec.
func (r *Runner) Build(spec TrialSpec) (Trial, error) {
	if err := spec.Validate(); err != nil {
		return Trial{}, err
	}

	runID := uuid.NewString()
	obs := r.observerFor(runID, spec.Name)
	newIntersection := func() *intersection.Intersection {
		return intersection.New(
			intersection.WithLogger(r.logger),
			intersection.WithObserver(obs),
			intersection.WithPolicy(r.policy),
		)
	}

	var shared *intersection.Intersection
	if spec.Shared {
		shared = newIntersection()
	}

	vopts := append([]vehicle.Option{
		vehicle.WithFloor(r.settings.CrossingFloor),
		vehicle.WithLogger(r.logger),
	}, r.vehicleOpts...)

	vehicles := make([]*vehicle.Vehicle, len(spec.Moves))
	for i, m := range spec.Moves {
		x := shared
		if x == nil {
			x = newIntersection()
		}
		vehicles[i] = vehicle.New(i+1, m, x, r.settings.BaseDelay, vopts...)
	}

	trial := NewTrial(spec, vehicles)
	trial.RunID = runID
	return trial, nil
}

// Run starts a light controller per intersection and every vehicle, then
// polls until all vehicles finish, the timeout passes, or ctx ends.
// Controllers are always cancelled and given ShutdownGrace to stop; vehicles
// still running at the timeout are not interrupted.
func (r *Runner) Run(ctx context.Context, trial Trial) Result {
	s := r.settings
	res := Result{
		RunID:    trial.RunID,
		Name:     trial.Spec.Name,
		Started:  time.Now(),
		Settings: s,
		Shared:   trial.Spec.Shared,
	}
	r.logger.Info("simulation started", "trial", res.Name, "vehicles", len(trial.Vehicles))

	controllers := make([]*lights.Controller, len(trial.intersections))
	handles := make([]*lights.Handle, len(trial.intersections))
	for i, x := range trial.intersections {
		controllers[i] = lights.New(x, s.CheckInterval, lights.WithLogger(r.logger))
		handles[i] = lights.Start(ctx, controllers[i])
	}

	var g errgroup.Group
	for _, v := range trial.Vehicles {
		g.Go(func() error { return v.Run(ctx) })
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	res.Outcome, res.Err = r.await(ctx, res.Started, done)
	res.Elapsed = time.Since(res.Started)

	res.ControllersStopped = true
	for i, h := range handles {
		if !h.Stop(s.ShutdownGrace) {
			res.ControllersStopped = false
			r.logger.Warn("light controller did not stop in time", "trial", res.Name, "grace", s.ShutdownGrace)
		}
		res.Signals += controllers[i].Signals()
	}

	for _, v := range trial.Vehicles {
		res.Vehicles = append(res.Vehicles, VehicleResult{
			ID:       v.ID,
			Move:     v.Move,
			State:    v.State(),
			Departed: v.Departed(),
		})
	}

	switch res.Outcome {
	case OutcomeSuccess:
		r.logger.Info("all vehicles crossed", "trial", res.Name, "elapsed", res.Elapsed.Round(time.Millisecond))
	case OutcomeDeadlock:
		r.logger.Warn("not all vehicles finished in time, possible deadlock",
			"trial", res.Name, "timeout", s.Timeout, "stuck", len(res.Stuck()))
	case OutcomeError:
		r.logger.Error("simulation failed", "trial", res.Name, "err", res.Err)
	}

	if r.recorder != nil {
		// Record even if the run was cancelled; the store write must still finish.
		if err := r.recorder.RecordRun(context.WithoutCancel(ctx), res); err != nil {
			r.logger.Warn("failed to record run", "run_id", res.RunID, "err", err)
		}
	}
	return res
}

// await polls done every PollInterval until the timeout passes.
func (r *Runner) await(ctx context.Context, start time.Time, done <-chan error) (Outcome, error) {
	ticker := time.NewTicker(r.settings.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			switch {
			case err == nil:
				return OutcomeSuccess, nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return OutcomeCancelled, err
			default:
				return OutcomeError, err
			}
		default:
		}

		if time.Since(start) >= r.settings.Timeout {
			return OutcomeDeadlock, nil
		}

		select {
		case <-ctx.Done():
			return OutcomeCancelled, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) observerFor(runID, trial string) intersection.Observer {
	var obs multiObserver
	if r.events != nil {
		obs = append(obs, eventLogObserver{log: r.events.With(map[string]any{"run_id": runID, "trial": trial})})
	}
	obs = append(obs, r.observers...)
	if len(obs) == 0 {
		return nil
	}
	return obs
}

type multiObserver []intersection.Observer

func (m multiObserver) Observe(e intersection.Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

type eventLogObserver struct {
	log *logging.EventLog
}

func (o eventLogObserver) Observe(e intersection.Event) {
	o.log.Log(map[string]any{
		"kind":    string(e.Kind),
		"from":    e.From.String(),
		"to":      e.To.String(),
		"waiting": e.Waiting,
		"time":    e.At.UTC().Format(time.RFC3339Nano),
	})
}
