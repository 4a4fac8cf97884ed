package simulation

import (
	"sync"
	"testing"

	"github.com/nvandessel/intersim/internal/intersection"
)

// Trace is an intersection.Observer that keeps every event in memory for
// property assertions.
type Trace struct {
	mu     sync.Mutex
	events []intersection.Event
}

// Observe implements intersection.Observer.
func (tr *Trace) Observe(e intersection.Event) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, e)
}

// Events returns a copy of the recorded events.
func (tr *Trace) Events() []intersection.Event {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]intersection.Event(nil), tr.events...)
}

// Count returns how many events of kind were recorded.
func (tr *Trace) Count(kind intersection.EventKind) int {
	n := 0
	for _, e := range tr.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// AssertSuccess asserts that the run finished with every vehicle departed
// and the controllers stopped.
func AssertSuccess(t *testing.T, result Result) {
	t.Helper()
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("AssertSuccess: %s: outcome %s (err %v), stuck %v", result.Name, result.Outcome, result.Err, result.Stuck())
	}
	for _, v := range result.Vehicles {
		if !v.Departed {
			t.Errorf("AssertSuccess: %s: vehicle %d (%s) ended %s without departing", result.Name, v.ID, v.Move, v.State)
		}
	}
	if !result.ControllersStopped {
		t.Errorf("AssertSuccess: %s: light controller outlived shutdown grace", result.Name)
	}
}

// AssertArriveBeforeLeave asserts that, per move, the n-th departure is
// preceded by at least n admissions, and that nothing departs unadmitted.
func AssertArriveBeforeLeave(t *testing.T, tr *Trace) {
	t.Helper()
	admitted := make(map[intersection.Move]int)
	for i, e := range tr.Events() {
		m := intersection.Move{From: e.From, To: e.To}
		switch e.Kind {
		case intersection.EventAdmitted:
			admitted[m]++
		case intersection.EventDeparted:
			if admitted[m] == 0 {
				t.Errorf("AssertArriveBeforeLeave: event %d: %s departed before being admitted", i, m)
				continue
			}
			admitted[m]--
		}
	}
}

// AssertSingleUse asserts exactly one arrival, admission and departure per
// vehicle for a run of n vehicles that all succeeded.
func AssertSingleUse(t *testing.T, tr *Trace, n int) {
	t.Helper()
	for _, kind := range []intersection.EventKind{intersection.EventArrived, intersection.EventAdmitted, intersection.EventDeparted} {
		if got := tr.Count(kind); got != n {
			t.Errorf("AssertSingleUse: %d %s events, want %d", got, kind, n)
		}
	}
	if got := tr.Count(intersection.EventCancelled); got != 0 {
		t.Errorf("AssertSingleUse: %d cancelled events, want 0", got)
	}
}
