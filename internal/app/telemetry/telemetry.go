// Package telemetry defines the write-only observability sink handed to the
// store and service layers. Business logic never reads from it.
package telemetry

import "time"

// Kind names what happened.
type Kind string

const (
	LinkCreated    Kind = "link_created"
	LinkRedirected Kind = "link_redirected"
	StoreTimeout   Kind = "store_timeout"
	StoreFailure   Kind = "store_failure"
	DuplicateID    Kind = "duplicate_id"
)

// Store operations reported in Event.Op.
const (
	OpInsert    = "insert"
	OpFind      = "find"
	OpList      = "list"
	OpIncrement = "increment"
)

// Event is a single observation.
type Event struct {
	Kind      Kind
	Op        string
	LinkID    string
	TargetURL string
	Redirects int64
	At        time.Time
}

// Sink receives events. Implementations must be safe for concurrent use and
// must not block the caller for long.
type Sink interface {
	Record(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Record implements Sink.
func (f SinkFunc) Record(e Event) { f(e) }

type nop struct{}

func (nop) Record(Event) {}

// Nop returns a Sink that drops every event.
func Nop() Sink { return nop{} }

type multi []Sink

func (m multi) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	return out
}

// OrNop returns s, or a Nop sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}
