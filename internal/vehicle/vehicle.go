// Package vehicle implements the car agent that crosses an intersection.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/nvandessel/intersim/internal/intersection"
)

// CrossingFloor is the minimum time a vehicle spends in the box.
const CrossingFloor = 200 * time.Millisecond

// ErrNilIntersection is returned by Run when the vehicle has nowhere to go.
var ErrNilIntersection = errors.New("vehicle has no intersection")

// State is a vehicle's lifecycle position.
type State int32

const (
	StateCreated State = iota
	StateArriving
	StateCrossing
	StateDeparted
	StateTerminated
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateArriving:
		return "arriving"
	case StateCrossing:
		return "crossing"
	case StateDeparted:
		return "departed"
	case StateTerminated:
		return "terminated"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Vehicle is one trip through an intersection. Run it once.
type Vehicle struct {
	ID        int
	Move      intersection.Move
	BaseDelay time.Duration

	x        *intersection.Intersection
	floor    time.Duration
	randN    func(n int64) int64
	logger   *slog.Logger
	state    atomic.Int32
	departed atomic.Bool
}

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithRand replaces the source of crossing-time jitter. fn must return a
// value in [0, n).
func WithRand(fn func(n int64) int64) Option {
	return func(v *Vehicle) { v.randN = fn }
}

// WithFloor overrides CrossingFloor.
func WithFloor(d time.Duration) Option {
	return func(v *Vehicle) { v.floor = d }
}

// WithLogger sets the logger for crossing diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vehicle) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a vehicle travelling m through x.
func New(id int, m intersection.Move, x *intersection.Intersection, baseDelay time.Duration, opts ...Option) *Vehicle {
	v := &Vehicle{
		ID:        id,
		Move:      m,
		BaseDelay: baseDelay,
		x:         x,
		floor:     CrossingFloor,
		randN:     rand.Int64N,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Intersection returns the intersection the vehicle crosses.
func (v *Vehicle) Intersection() *intersection.Intersection { return v.x }

// State returns the current lifecycle state. Safe for concurrent use.
func (v *Vehicle) State() State { return State(v.state.Load()) }

// Departed reports whether the vehicle has left the intersection.
func (v *Vehicle) Departed() bool { return v.departed.Load() }

func (v *Vehicle) setState(s State) { v.state.Store(int32(s)) }

// Run arrives, crosses and leaves. If ctx ends while the vehicle is waiting
// or crossing, Run returns ctx.Err() at once and Leave is not called.
func (v *Vehicle) Run(ctx context.Context) error {
	if v.x == nil {
		v.setState(StateTerminated)
		return ErrNilIntersection
	}

	v.setState(StateArriving)
	if err := v.x.Arrive(ctx, v.Move.From, v.Move.To); err != nil {
		v.finish(ctx)
		return err
	}

	v.setState(StateCrossing)
	v.logger.Info("vehicle crossing", "id", v.ID, "from", v.Move.From, "to", v.Move.To)

	timer := time.NewTimer(v.crossingTime())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		v.setState(StateCancelled)
		return ctx.Err()
	case <-timer.C:
	}

	v.x.Leave(v.Move.From, v.Move.To)
	v.setState(StateDeparted)
	v.departed.Store(true)
	v.setState(StateTerminated)
	return nil
}

func (v *Vehicle) finish(ctx context.Context) {
	if ctx.Err() != nil {
		v.setState(StateCancelled)
		return
	}
	v.setState(StateTerminated)
}

// crossingTime is uniform in [floor, floor+BaseDelay).
func (v *Vehicle) crossingTime() time.Duration {
	d := v.floor
	if v.BaseDelay > 0 {
		d += time.Duration(v.randN(int64(v.BaseDelay)))
	}
	return d
}
