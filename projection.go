package fxcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
)

// viewApplyRetries bounds in-place retries of a failed view fold. An ordered
// consumer cannot redeliver, so a transient key-value write failure is
// retried here before the event is given up on.
const viewApplyRetries = 3

// ViewDef describes one read model: which stream feeds it, how to route an
// event to the view keys it affects, and how to fold an event into a view.
type ViewDef struct {
	// Name of the view type. Doubles as the key-value bucket name and must
	// refer to a registered type.
	Name string

	// Source is the entity stream the view folds.
	Source string

	// Subjects filters the source subject space. Defaults to the whole
	// stream.
	Subjects string

	// Init returns a new empty view.
	Init func() any

	// Keys routes an event to every view key it affects. The key is often
	// the entity id, but may be any derived key, such as a partner email
	// on events raised by many different conference streams. An empty
	// result skips the event.
	Keys func(event *Event) []string

	// Apply folds one event into the view. Events from one source stream
	// arrive in strict sequence order, which running aggregates such as an
	// incremental average depend on.
	Apply func(view any, event *Event) error
}

// ProjectionEngine builds and maintains read models by folding committed
// events, independent of and asynchronous to the aggregate actors. Views
// persist in one JetStream key-value bucket per view type. On start the
// engine rebuilds every view from the full event history, then keeps
// folding live events in stream order.
type ProjectionEngine struct {
	core *Core
	log  *slog.Logger

	mu      sync.Mutex
	defs    map[string]*ViewDef
	buckets map[string]nats.KeyValue
	subs    []*nats.Subscription
	started bool
}

// NewProjectionEngine creates an engine bound to the core's connection and
// type registry.
func NewProjectionEngine(core *Core) *ProjectionEngine {
	return &ProjectionEngine{
		core:    core,
		log:     core.log,
		defs:    make(map[string]*ViewDef),
		buckets: make(map[string]nats.KeyValue),
	}
}

// Register adds view definitions. All views must be registered before
// Start; a malformed definition is a configuration error.
func (p *ProjectionEngine) Register(defs ...*ViewDef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return configf("projections", "register after start")
	}

	for _, def := range defs {
		if !entityNameRegex.MatchString(def.Name) {
			return configf("projections", "invalid view name %q", def.Name)
		}
		if _, ok := p.defs[def.Name]; ok {
			return configf(def.Name, "registered twice")
		}
		if def.Source == "" {
			return configf(def.Name, "source stream is required")
		}
		if def.Init == nil || def.Init() == nil {
			return configf(def.Name, "init func is required")
		}
		if def.Keys == nil {
			return configf(def.Name, "keys func is required")
		}
		if def.Apply == nil {
			return configf(def.Name, "apply func is required")
		}
		if p.core.types == nil {
			return configf(def.Name, "a type registry is required")
		}
		if _, err := p.core.types.Lookup(def.Init()); err != nil {
			return configf(def.Name, "view type not in type registry")
		}
		p.defs[def.Name] = def
	}
	return nil
}

// Start rebuilds every registered view and begins live folding. Each view
// gets an ordered consumer on its source stream, so events of one stream
// are folded strictly in sequence order; interleaving across streams
// carries no guarantee.
func (p *ProjectionEngine) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return configf("projections", "started twice")
	}
	p.started = true

	for _, def := range p.defs {
		// Views are derived data. Recreating the bucket on start makes the
		// rebuild a pure function of the event history.
		_ = p.core.js.DeleteKeyValue(def.Name)
		kv, err := p.core.js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: def.Name,
		})
		if err != nil {
			return fmt.Errorf("fxcore: create view bucket %s: %w", def.Name, err)
		}
		p.buckets[def.Name] = kv

		subjects := def.Subjects
		if subjects == "" {
			subjects = fmt.Sprintf("%s.>", def.Source)
		}

		sub, err := p.core.js.Subscribe(subjects, p.fold(def, kv),
			nats.BindStream(def.Source),
			nats.OrderedConsumer(),
			nats.DeliverAll(),
		)
		if err != nil {
			return fmt.Errorf("fxcore: subscribe view %s: %w", def.Name, err)
		}
		p.subs = append(p.subs, sub)
	}
	return nil
}

func (p *ProjectionEngine) fold(def *ViewDef, kv nats.KeyValue) nats.MsgHandler {
	return func(msg *nats.Msg) {
		event, err := p.core.UnpackEvent(msg)
		if err != nil {
			p.log.Error("view unpack failed", "view", def.Name, "err", err)
			return
		}
		event.Stream = def.Source

		for _, key := range def.Keys(event) {
			op := func() error { return p.applyOne(def, kv, key, event) }
			bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), viewApplyRetries)
			if err := backoff.Retry(op, bo); err != nil {
				p.log.Error("view fold failed, view is behind its stream",
					"view", def.Name, "key", key, "event", event.Type, "seq", event.Seq, "err", err)
			}
		}
	}
}

func (p *ProjectionEngine) applyOne(def *ViewDef, kv nats.KeyValue, key string, event *Event) error {
	token := EncodeToken(key)

	var (
		view any
		rev  uint64
	)

	entry, err := kv.Get(token)
	switch {
	case err == nil:
		view = def.Init()
		if err := p.core.types.Unmarshal(entry.Value(), view); err != nil {
			return err
		}
		rev = entry.Revision()
	case errors.Is(err, nats.ErrKeyNotFound):
		view = def.Init()
	default:
		return err
	}

	if err := def.Apply(view, event); err != nil {
		return err
	}

	data, err := p.core.types.Marshal(view)
	if err != nil {
		return err
	}

	if rev == 0 {
		_, err = kv.Create(token, data)
	} else {
		_, err = kv.Update(token, data, rev)
	}
	return err
}

// Load reads the current view for a key. ErrViewNotFound is reported when
// no event has touched the key yet.
func (p *ProjectionEngine) Load(view, key string) (any, error) {
	p.mu.Lock()
	def, ok := p.defs[view]
	kv := p.buckets[view]
	p.mu.Unlock()

	if !ok {
		return nil, configf("projections", "unknown view type %q", view)
	}
	if kv == nil {
		return nil, configf(view, "engine not started")
	}

	entry, err := kv.Get(EncodeToken(key))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrViewNotFound, view, key)
		}
		return nil, err
	}

	v := def.Init()
	if err := p.core.types.Unmarshal(entry.Value(), v); err != nil {
		return nil, err
	}
	return v, nil
}

// Close stops the consumers. Buckets are left in place for readers.
func (p *ProjectionEngine) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sub := range p.subs {
		sub.Unsubscribe()
	}
	p.subs = nil
}
