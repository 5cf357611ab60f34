package fxcore

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fortium/fxcore/clock"
	"github.com/fortium/fxcore/codec"
	"github.com/fortium/fxcore/id"
	"github.com/fortium/fxcore/types"
)

type coreOption func(o *Core) error

func (f coreOption) addOption(o *Core) error {
	return f(o)
}

// CoreOption models an option when creating a Core instance.
type CoreOption interface {
	addOption(o *Core) error
}

// TypeRegistry sets an explicit type registry.
func TypeRegistry(types *types.Registry) CoreOption {
	return coreOption(func(o *Core) error {
		o.types = types
		return nil
	})
}

// Clock sets a clock implementation. Default is clock.Time.
func Clock(clock clock.Clock) CoreOption {
	return coreOption(func(o *Core) error {
		o.clock = clock
		return nil
	})
}

// ID sets a unique ID generator implementation. Default is id.NUID.
func ID(id id.ID) CoreOption {
	return coreOption(func(o *Core) error {
		o.id = id
		return nil
	})
}

// Logger sets the logger shared by the runtime components. The logger is
// always passed explicitly at construction time, never read from a global.
// Default discards everything.
func Logger(l *slog.Logger) CoreOption {
	return coreOption(func(o *Core) error {
		o.log = l
		return nil
	})
}

// Core holds the NATS connection and the shared collaborators used by the
// event store, runtime, choreography, and projection engine.
type Core struct {
	nc *nats.Conn
	js nats.JetStreamContext

	id    id.ID
	clock clock.Clock
	types *types.Registry
	log   *slog.Logger
}

// Types returns the configured type registry, which may be nil.
func (c *Core) Types() *types.Registry {
	return c.types
}

// UnpackEvent unpacks an Event from a NATS message.
func (c *Core) UnpackEvent(msg *nats.Msg) (*Event, error) {
	eventType := msg.Header.Get(eventTypeHdr)
	codecName := msg.Header.Get(eventCodecHdr)
	if codecName == "" {
		codecName = codec.DefaultName
	}

	var (
		data any
		err  error
	)

	cd, err := codec.Registry.Get(codecName)
	if err != nil {
		return nil, err
	}

	// No type registry, so assume byte slice.
	if c.types == nil {
		var b []byte
		err = cd.Unmarshal(msg.Data, &b)
		data = b
	} else {
		data, err = c.types.Init(eventType)
		if err == nil {
			err = cd.Unmarshal(msg.Data, data)
		}
	}
	if err != nil {
		return nil, err
	}

	var seq uint64
	// If this message is not from a native JS subscription, the reply will
	// not be set. This is where metadata is parsed from. In cases where a
	// message is re-published, we don't want to fail if we can't get the
	// sequence.
	if msg.Reply != "" {
		md, err := msg.Metadata()
		if err != nil {
			return nil, fmt.Errorf("unpack: failed to get metadata: %s", err)
		}
		seq = md.Sequence.Stream
	}

	eventTime, err := time.Parse(eventTimeFormat, msg.Header.Get(eventTimeHdr))
	if err != nil {
		return nil, fmt.Errorf("unpack: failed to parse event time: %s", err)
	}

	var meta map[string]string
	for h := range msg.Header {
		if strings.HasPrefix(h, eventMetaPrefixHdr) {
			if meta == nil {
				meta = make(map[string]string)
			}
			key := h[len(eventMetaPrefixHdr):]
			meta[key] = msg.Header.Get(h)
		}
	}

	return &Event{
		ID:      msg.Header.Get(nats.MsgIdHdr),
		Type:    eventType,
		Time:    eventTime,
		Data:    data,
		Meta:    meta,
		Subject: msg.Subject,
		Seq:     seq,
	}, nil
}

// EventStore returns a handle on the event store backed by the named stream.
func (c *Core) EventStore(name string) *EventStore {
	return &EventStore{
		name: name,
		core: c,
	}
}

// New initializes a new Core instance with a NATS connection.
func New(nc *nats.Conn, opts ...CoreOption) (*Core, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	c := &Core{
		nc:    nc,
		js:    js,
		id:    id.NUID,
		clock: clock.Time,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, o := range opts {
		if err := o.addOption(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}
