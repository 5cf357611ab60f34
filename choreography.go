package fxcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Derived is a command produced by a reaction, addressed to an entity of a
// different type than the one that raised the event.
type Derived struct {
	Entity string
	ID     string
	Data   any
}

// ReactionFunc translates a committed envelope into zero or more derived
// commands. Delivery is at-least-once: the same envelope may arrive more
// than once after a crash or a missed ack, so the receiving command
// handlers must be idempotent.
type ReactionFunc func(ctx context.Context, env *Envelope) ([]Derived, error)

// Reaction subscribes one durable consumer to an entity type's committed
// events.
type Reaction struct {
	// Name of the reaction. Doubles as the durable consumer name, so
	// delivery progress survives restarts.
	Name string

	// Stream is the source entity stream.
	Stream string

	// Subjects filters the source subject space. Defaults to the whole
	// stream.
	Subjects string

	// Handle produces the derived commands for one envelope.
	Handle ReactionFunc
}

// Choreography delivers committed events to the actors of other entity
// types. Events are durable before delivery is attempted, so a delivery
// failure never affects the originating append; the transport redelivers
// until the reaction succeeds or the delivery bound is exhausted.
type Choreography struct {
	core *Core
	rt   *Runtime
	log  *slog.Logger
	cfg  Config

	mu        sync.Mutex
	reactions []*Reaction
	subs      []*nats.Subscription
	started   bool
}

// NewChoreography wires a choreography layer over the runtime. Derived
// commands are submitted through the runtime like any external command.
func NewChoreography(core *Core, rt *Runtime) *Choreography {
	return &Choreography{
		core: core,
		rt:   rt,
		log:  core.log,
		cfg:  rt.cfg,
	}
}

// Register adds a reaction. All reactions must be registered before Start.
func (c *Choreography) Register(reactions ...*Reaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return configf("choreography", "register after start")
	}

	for _, r := range reactions {
		if r.Name == "" {
			return configf("choreography", "reaction name is required")
		}
		if r.Stream == "" {
			return configf("choreography", "reaction %q: source stream is required", r.Name)
		}
		if r.Handle == nil {
			return configf("choreography", "reaction %q: handle func is nil", r.Name)
		}
		if _, err := c.rt.EventStore(r.Stream); err != nil {
			return configf("choreography", "reaction %q: unknown stream %q", r.Name, r.Stream)
		}
		c.reactions = append(c.reactions, r)
	}
	return nil
}

// Start creates one durable consumer per reaction and begins delivering.
func (c *Choreography) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return configf("choreography", "started twice")
	}
	c.started = true

	for _, r := range c.reactions {
		subjects := r.Subjects
		if subjects == "" {
			subjects = fmt.Sprintf("%s.>", r.Stream)
		}

		sub, err := c.core.js.Subscribe(subjects, c.deliver(ctx, r),
			nats.BindStream(r.Stream),
			nats.Durable(r.Name),
			nats.ManualAck(),
			nats.AckExplicit(),
			nats.AckWait(c.cfg.AckWait),
			nats.MaxDeliver(c.cfg.MaxDeliver),
			nats.DeliverAll(),
			// One envelope in flight per reaction keeps per-stream order.
			nats.MaxAckPending(1),
		)
		if err != nil {
			return fmt.Errorf("fxcore: subscribe reaction %s: %w", r.Name, err)
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

func (c *Choreography) deliver(ctx context.Context, r *Reaction) nats.MsgHandler {
	return func(msg *nats.Msg) {
		event, err := c.core.UnpackEvent(msg)
		if err != nil {
			// A payload that cannot decode will never decode; drop it.
			c.log.Error("reaction unpack failed", "reaction", r.Name, "err", err)
			msg.Term()
			return
		}
		event.Stream = r.Stream

		env := &Envelope{
			Stream:       r.Stream,
			Subject:      msg.Subject,
			EntityID:     event.EntityID(),
			Event:        event,
			NumDelivered: 1,
		}
		if md, err := msg.Metadata(); err == nil {
			env.NumDelivered = md.NumDelivered
		}

		derived, err := r.Handle(ctx, env)
		if err != nil {
			c.log.Warn("reaction failed, will redeliver",
				"reaction", r.Name, "event", event.Type, "delivered", env.NumDelivered, "err", err)
			msg.Nak()
			return
		}

		for _, d := range derived {
			err := c.rt.Submit(ctx, d.Entity, d.ID, d.Data)
			switch {
			case err == nil:
			case errors.Is(err, ErrValidation):
				// A rejected derived command will be rejected again on
				// redelivery; log and move on.
				c.log.Error("derived command rejected",
					"reaction", r.Name, "entity", d.Entity, "id", d.ID, "err", err)
			default:
				c.log.Warn("derived command failed, will redeliver",
					"reaction", r.Name, "entity", d.Entity, "id", d.ID, "err", err)
				msg.Nak()
				return
			}
		}

		msg.Ack()
	}
}

// Close drains the consumers.
func (c *Choreography) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}
