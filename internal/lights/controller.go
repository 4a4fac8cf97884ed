// Package lights implements the traffic-light controller that admits
// vehicles waiting at an intersection.
package lights

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/nvandessel/intersim/internal/intersection"
)

// DefaultCheckInterval is how long the controller backs off when no
// direction has waiting vehicles.
const DefaultCheckInterval = 500 * time.Millisecond

// Controller polls an intersection and wakes one waiter on every non-empty
// approach per cycle, in the fixed order N, S, W, E. It sleeps for the
// check interval only after a cycle in which every queue was empty.
type Controller struct {
	x        *intersection.Intersection
	interval time.Duration
	logger   *slog.Logger

	cycles  atomic.Int64
	signals atomic.Int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller for x. A non-positive interval selects
// DefaultCheckInterval.
func New(x *intersection.Intersection, interval time.Duration, opts ...Option) *Controller {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	c := &Controller{
		x:        x,
		interval: interval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cycles returns the number of completed polling cycles.
func (c *Controller) Cycles() int64 { return c.cycles.Load() }

// Signals returns the number of waiters woken so far.
func (c *Controller) Signals() int64 { return c.signals.Load() }

// Run polls until ctx ends. Cancellation is the normal way to stop the
// controller, so Run always returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Debug("light controller started", "interval", c.interval)
	defer func() {
		c.logger.Debug("light controller stopped", "cycles", c.Cycles(), "signals", c.Signals())
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if c.Cycle() {
			runtime.Gosched()
			continue
		}

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Cycle performs one pass over all directions and reports whether any
// direction had waiting vehicles.
func (c *Controller) Cycle() bool {
	acted := false
	c.x.Inspect(func(s intersection.Signals) {
		for _, d := range intersection.Directions {
			if s.Waiting(d) == 0 {
				continue
			}
			if s.Signal(d) {
				c.signals.Add(1)
			}
			acted = true
		}
	})
	c.cycles.Add(1)
	return acted
}

// Handle tracks a controller running on its own goroutine.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs c on a new goroutine bound to a child of ctx.
func Start(ctx context.Context, c *Controller) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		_ = c.Run(ctx)
	}()
	return h
}

// Done is closed once the controller goroutine has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop cancels the controller and waits at most grace for it to return.
// It reports whether the controller stopped in time.
func (h *Handle) Stop(grace time.Duration) bool {
	h.cancel()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}
