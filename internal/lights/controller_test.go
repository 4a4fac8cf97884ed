package lights

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/intersim/internal/intersection"
)

func waitQueued(t *testing.T, x *intersection.Intersection, d intersection.Direction, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return x.Waiting(d) == n }, time.Second, time.Millisecond)
}

func TestCycle_EmptyIntersection(t *testing.T) {
	c := New(intersection.New(), time.Second)

	assert.False(t, c.Cycle())
	assert.EqualValues(t, 1, c.Cycles())
	assert.Zero(t, c.Signals())
}

func TestCycle_SignalsEveryNonEmptyDirection(t *testing.T) {
	var mu sync.Mutex
	var signaled []intersection.Direction
	x := intersection.New(
		intersection.WithPolicy(func(from, to intersection.Direction) bool { return false }),
		intersection.WithObserver(intersection.ObserverFunc(func(e intersection.Event) {
			if e.Kind == intersection.EventSignaled {
				mu.Lock()
				signaled = append(signaled, e.From)
				mu.Unlock()
			}
		})),
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	for _, m := range []intersection.Move{
		{From: intersection.East, To: intersection.West},
		{From: intersection.South, To: intersection.North},
		{From: intersection.North, To: intersection.East},
	} {
		go x.Arrive(ctx, m.From, m.To)
		waitQueued(t, x, m.From, 1)
	}

	c := New(x, time.Second)
	assert.True(t, c.Cycle())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []intersection.Direction{intersection.North, intersection.South, intersection.East}, signaled)
	assert.EqualValues(t, 3, c.Signals())
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := New(intersection.New(), time.Hour)
	h := Start(t.Context(), c)

	require.Eventually(t, func() bool { return c.Cycles() >= 1 }, time.Second, time.Millisecond)
	assert.True(t, h.Stop(time.Second), "controller should stop while backing off")

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestRun_ReturnsNilWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	c := New(intersection.New(), time.Hour)

	assert.NoError(t, c.Run(ctx))
	assert.Zero(t, c.Cycles())
}

func TestRun_AdmitsWaitingVehiclesWithinInterval(t *testing.T) {
	const interval = 500 * time.Millisecond
	x := intersection.New()
	h := Start(t.Context(), New(x, interval))
	defer h.Stop(time.Second)

	moves := []intersection.Move{
		{From: intersection.South, To: intersection.West},
		{From: intersection.West, To: intersection.East},
		{From: intersection.North, To: intersection.South},
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, m := range moves {
		wg.Add(1)
		go func(m intersection.Move) {
			defer wg.Done()
			assert.NoError(t, x.Arrive(t.Context(), m.From, m.To))
		}(m)
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 3*interval)
}

func TestNew_DefaultInterval(t *testing.T) {
	c := New(intersection.New(), 0)
	assert.Equal(t, DefaultCheckInterval, c.interval)
}

func TestHandle_StopTimesOut(t *testing.T) {
	h := &Handle{cancel: func() {}, done: make(chan struct{})}
	assert.False(t, h.Stop(10*time.Millisecond))
}
