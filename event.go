package fxcore

import (
	"time"
)

// Validator can be optionally implemented by user-defined command types and
// is checked before the command is dispatched, in addition to any struct tag
// validation rules.
type Validator interface {
	Validate() error
}

// State is implemented by aggregate state types. The current state is always
// reproducible by initializing an empty value and evolving it with the full
// event stream in sequence order.
type State interface {
	// Evolve applies a single event to the state, mutating it. Evolve must be
	// a pure function of the state and the event so that replays are
	// deterministic.
	Evolve(event *Event) error

	// Snapshot returns an independent copy of the externally visible state.
	// Snapshots are served to read-only queries and may be taken while a
	// command is in flight.
	Snapshot() any
}

// Event is a wrapper type for events on a stream.
type Event struct {
	// ID of the event. This is used as the NATS msg ID for de-duplication.
	ID string

	// Type is the unique registered name for the event.
	Type string

	// Time is the time of when the event occurred which may be different
	// from the time the event is appended to the store. If no time is
	// provided, the core clock is consulted.
	Time time.Time

	// Data is the event data. This must be a byte slice (pre-encoded) or a
	// value of a type registered in the type registry.
	Data any

	// Meta is arbitrary metadata associated with the event. The runtime sets
	// the originating entity id under MetaEntityID.
	Meta map[string]string

	// Stream is the name of the stream this event was loaded from. Ignored
	// on append.
	Stream string

	// Subject the event was appended under. Ignored on append.
	Subject string

	// Seq is the stream sequence of this event. Ignored on append.
	Seq uint64
}

// MetaEntityID is the metadata key under which the runtime records the
// identity of the entity that produced an event.
const MetaEntityID = "entity-id"

// EntityID returns the identity of the producing entity, if recorded.
func (e *Event) EntityID() string {
	return e.Meta[MetaEntityID]
}

// Command is an immutable request naming an intended state change for one
// entity. Commands carry no stream position.
type Command struct {
	ID   string
	Type string
	Time time.Time
	Data any
}

// Envelope wraps a committed event with its transport metadata for delivery
// to subscribers of other entity types. Envelopes do not participate in the
// owning entity's own replay.
type Envelope struct {
	// Stream the event was committed to.
	Stream string

	// Subject the event was published under.
	Subject string

	// EntityID is the identity of the producing entity.
	EntityID string

	// Event is the committed event.
	Event *Event

	// NumDelivered counts deliveries of this envelope, starting at 1.
	// Values above 1 indicate a redelivery.
	NumDelivered uint64
}
