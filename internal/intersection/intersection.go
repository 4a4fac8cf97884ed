package intersection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nvandessel/intersim/internal/logging"
)

// waiter is one vehicle blocked in Arrive. wake has capacity one, so a
// pending signal is never lost and never counted twice.
type waiter struct {
	to   Direction
	wake chan struct{}
}

// Intersection is a monitor over four approach queues. One mutex guards all
// queues; every waiter owns a wake channel that plays the role of a
// condition variable bound to that mutex.
type Intersection struct {
	mu       sync.Mutex
	queues   [len(Directions)][]*waiter
	policy   Policy
	logger   *slog.Logger
	observer Observer
}

// Option configures an Intersection.
type Option func(*Intersection)

// WithPolicy replaces the admission policy. A nil policy is ignored.
func WithPolicy(p Policy) Option {
	return func(x *Intersection) {
		if p != nil {
			x.policy = p
		}
	}
}

// WithLogger sets the logger used for arrival and departure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(x *Intersection) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithObserver registers an observer for monitor events.
func WithObserver(o Observer) Option {
	return func(x *Intersection) {
		x.observer = o
	}
}

// New creates an empty intersection using AlwaysAdmit unless overridden.
func New(opts ...Option) *Intersection {
	x := &Intersection{
		policy: AlwaysAdmit,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Arrive queues a vehicle at from heading to, then blocks until a controller
// signals from and the policy admits the move. The predicate is re-checked
// after every wake-up. On admission the vehicle's own queue entry is removed.
//
// If ctx ends first the entry is withdrawn and ctx.Err() is returned; the
// vehicle has not been admitted and must not call Leave.
func (x *Intersection) Arrive(ctx context.Context, from, to Direction) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %s->%s", ErrInvalidDirection, from, to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w := &waiter{to: to, wake: make(chan struct{}, 1)}

	x.mu.Lock()
	x.queues[from] = append(x.queues[from], w)
	x.logger.Info("vehicle arrived", "from", from, "to", to, "waiting", len(x.queues[from]))
	x.emit(EventArrived, from, to)

	for {
		x.mu.Unlock()
		select {
		case <-w.wake:
		case <-ctx.Done():
			x.mu.Lock()
			x.remove(from, w)
			x.logger.Debug("vehicle gave up waiting", "from", from, "to", to, "err", ctx.Err())
			x.emit(EventCancelled, from, to)
			x.mu.Unlock()
			return ctx.Err()
		}
		x.mu.Lock()
		if x.policy(from, to) {
			x.remove(from, w)
			x.emit(EventAdmitted, from, to)
			x.mu.Unlock()
			return nil
		}
	}
}

// Leave records that a vehicle admitted by Arrive has cleared the box.
func (x *Intersection) Leave(from, to Direction) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.logger.Info("vehicle departed", "from", from, "to", to)
	x.emit(EventDeparted, from, to)
}

// CanGo evaluates the admission policy for a move.
func (x *Intersection) CanGo(from, to Direction) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.policy(from, to)
}

// Waiting returns the number of vehicles queued at d.
func (x *Intersection) Waiting(d Direction) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.queues[d])
}

// Pending returns a copy of the destinations queued at d, oldest first.
func (x *Intersection) Pending(d Direction) []Direction {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.pending(d)
}

// Signals is the view a controller gets while holding the intersection lock.
type Signals interface {
	// Waiting returns the queue length at d.
	Waiting(d Direction) int
	// Pending returns a copy of the destinations queued at d.
	Pending(d Direction) []Direction
	// Signal wakes the oldest waiter at d that has not already been woken.
	// It reports whether a waiter was woken.
	Signal(d Direction) bool
}

// Inspect runs fn with the intersection lock held. fn must not call any
// other Intersection method.
func (x *Intersection) Inspect(fn func(Signals)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	fn(locked{x})
}

type locked struct {
	x *Intersection
}

func (l locked) Waiting(d Direction) int         { return len(l.x.queues[d]) }
func (l locked) Pending(d Direction) []Direction { return l.x.pending(d) }

func (l locked) Signal(d Direction) bool {
	for _, w := range l.x.queues[d] {
		select {
		case w.wake <- struct{}{}:
			l.x.logger.Log(context.Background(), logging.LevelTrace, "signal", "from", d, "to", w.to)
			l.x.emit(EventSignaled, d, w.to)
			return true
		default:
		}
	}
	return false
}

func (x *Intersection) pending(d Direction) []Direction {
	out := make([]Direction, len(x.queues[d]))
	for i, w := range x.queues[d] {
		out[i] = w.to
	}
	return out
}

func (x *Intersection) remove(d Direction, w *waiter) {
	if i := slices.Index(x.queues[d], w); i >= 0 {
		x.queues[d] = slices.Delete(x.queues[d], i, i+1)
	}
}

func (x *Intersection) emit(kind EventKind, from, to Direction) {
	if x.observer == nil {
		return
	}
	x.observer.Observe(Event{
		Kind:    kind,
		From:    from,
		To:      to,
		Waiting: len(x.queues[from]),
		At:      time.Now(),
	})
}
