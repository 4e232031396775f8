package events

import "time"

// Kind names an event in a dotted namespace, e.g. "task.started".
type Kind string

// Event is implemented by every value emitted by the command pipeline.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and creation time shared by all events.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind           { return b.kind }
func (b Base) Timestamp() time.Time { return b.timestamp }

// Emitter receives events. Implementations must not block for long; the
// capture loop and the supervisor control loop call it inline.
type Emitter func(Event)

// Noop discards every event.
func Noop(Event) {}

// Safe returns emit, or Noop when emit is nil.
func Safe(emit Emitter) Emitter {
	if emit == nil {
		return Noop
	}
	return emit
}
