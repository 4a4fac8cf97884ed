package vehicle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/intersim/internal/intersection"
)

type recorder struct {
	mu     sync.Mutex
	events []intersection.Event
}

func (r *recorder) Observe(e intersection.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []intersection.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]intersection.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// greenWave signals every direction until ctx ends.
func greenWave(ctx context.Context, x *intersection.Intersection) {
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				x.Inspect(func(s intersection.Signals) {
					for _, d := range intersection.Directions {
						s.Signal(d)
					}
				})
			}
		}
	}()
}

func noJitter(int64) int64 { return 0 }

func TestRun_ArriveThenLeave(t *testing.T) {
	rec := &recorder{}
	x := intersection.New(intersection.WithObserver(rec))
	greenWave(t.Context(), x)

	v := New(1, intersection.Move{From: intersection.South, To: intersection.West}, x, 0,
		WithRand(noJitter), WithFloor(5*time.Millisecond))
	assert.Equal(t, StateCreated, v.State())

	require.NoError(t, v.Run(t.Context()))

	assert.Equal(t, StateTerminated, v.State())
	assert.True(t, v.Departed())

	kinds := rec.kinds()
	var arrived, admitted, departed int
	for i, k := range kinds {
		switch k {
		case intersection.EventArrived:
			arrived++
		case intersection.EventAdmitted:
			admitted++
			assert.NotContains(t, kinds[:i], intersection.EventDeparted)
		case intersection.EventDeparted:
			departed++
			assert.Contains(t, kinds[:i], intersection.EventAdmitted)
		}
	}
	assert.Equal(t, 1, arrived)
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, departed)
}

func TestRun_CancelledWhileArriving(t *testing.T) {
	rec := &recorder{}
	x := intersection.New(intersection.WithObserver(rec))
	ctx, cancel := context.WithCancel(t.Context())

	v := New(2, intersection.Move{From: intersection.North, To: intersection.South}, x, 0)
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()

	require.Eventually(t, func() bool { return x.Waiting(intersection.North) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateArriving, v.State())
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("vehicle did not unwind after cancellation")
	}
	assert.Equal(t, StateCancelled, v.State())
	assert.False(t, v.Departed())
	assert.NotContains(t, rec.kinds(), intersection.EventDeparted)
}

func TestRun_CancelledWhileCrossing(t *testing.T) {
	rec := &recorder{}
	x := intersection.New(intersection.WithObserver(rec))
	greenWave(t.Context(), x)
	ctx, cancel := context.WithCancel(t.Context())

	v := New(3, intersection.Move{From: intersection.West, To: intersection.East}, x, 0, WithFloor(time.Hour))
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()

	require.Eventually(t, func() bool { return v.State() == StateCrossing }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("vehicle kept crossing after cancellation")
	}
	assert.Equal(t, StateCancelled, v.State())
	assert.NotContains(t, rec.kinds(), intersection.EventDeparted)
}

func TestRun_NilIntersection(t *testing.T) {
	v := New(4, intersection.Move{From: intersection.East, To: intersection.North}, nil, 0)
	assert.ErrorIs(t, v.Run(t.Context()), ErrNilIntersection)
	assert.False(t, v.Departed())
}

func TestCrossingTime(t *testing.T) {
	tests := []struct {
		name      string
		baseDelay time.Duration
		jitter    int64
		want      time.Duration
	}{
		{"no base delay", 0, 0, CrossingFloor},
		{"lowest draw", 500 * time.Millisecond, 0, CrossingFloor},
		{"highest draw", 500 * time.Millisecond, int64(500*time.Millisecond) - 1, CrossingFloor + 500*time.Millisecond - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotN int64
			v := New(1, intersection.Move{}, nil, tt.baseDelay, WithRand(func(n int64) int64 {
				gotN = n
				return tt.jitter
			}))
			assert.Equal(t, tt.want, v.crossingTime())
			if tt.baseDelay > 0 {
				assert.Equal(t, int64(tt.baseDelay), gotN)
			}
		})
	}
}

func TestCrossingTime_DefaultRandInRange(t *testing.T) {
	v := New(1, intersection.Move{}, nil, 50*time.Millisecond)
	for i := 0; i < 100; i++ {
		d := v.crossingTime()
		assert.GreaterOrEqual(t, d, CrossingFloor)
		assert.Less(t, d, CrossingFloor+50*time.Millisecond)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "departed", StateDeparted.String())
	assert.Equal(t, "State(42)", State(42).String())
}
