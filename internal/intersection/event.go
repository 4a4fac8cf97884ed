package intersection

import "time"

// EventKind names a monitor transition.
type EventKind string

const (
	EventArrived   EventKind = "arrived"
	EventSignaled  EventKind = "signaled"
	EventAdmitted  EventKind = "admitted"
	EventCancelled EventKind = "cancelled"
	EventDeparted  EventKind = "departed"
)

// Event describes one transition of the monitor. Waiting is the length of
// the From queue after the transition.
type Event struct {
	Kind    EventKind `json:"kind"`
	From    Direction `json:"from"`
	To      Direction `json:"to"`
	Waiting int       `json:"waiting"`
	At      time.Time `json:"at"`
}

// Observer receives monitor events. Observe is called with the intersection
// lock held, so events arrive in monitor order and Observe must not call back
// into the Intersection.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }
