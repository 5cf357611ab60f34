package fxcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

type runtimeOption func(r *Runtime) error

func (f runtimeOption) addOption(r *Runtime) error {
	return f(r)
}

// RuntimeOption models an option when creating a Runtime.
type RuntimeOption interface {
	addOption(r *Runtime) error
}

// WithConfig overrides the default runtime configuration.
func WithConfig(cfg Config) RuntimeOption {
	return runtimeOption(func(r *Runtime) error {
		r.cfg = cfg
		return nil
	})
}

// Runtime hosts one aggregate actor per entity identity and exposes the
// command and query inbound interfaces. Actors spawn lazily on first use
// and reconstruct their state from the event log.
type Runtime struct {
	core *Core
	disp *Dispatcher
	cfg  Config
	log  *slog.Logger

	mu     sync.Mutex
	actors map[string]*actor
	stores map[string]*EventStore
	closed bool
}

// NewRuntime wires a runtime over the core and dispatcher. The backing
// stream for every registered entity type is created if it does not exist.
func NewRuntime(core *Core, disp *Dispatcher, opts ...RuntimeOption) (*Runtime, error) {
	r := &Runtime{
		core:   core,
		disp:   disp,
		cfg:    DefaultConfig(),
		log:    core.log,
		actors: make(map[string]*actor),
		stores: make(map[string]*EventStore),
	}

	for _, o := range opts {
		if err := o.addOption(r); err != nil {
			return nil, err
		}
	}

	storage := nats.FileStorage
	if r.cfg.MemoryStorage {
		storage = nats.MemoryStorage
	}

	for name, e := range disp.entities {
		es := core.EventStore(e.Name)
		err := es.Create(&nats.StreamConfig{
			Storage:  storage,
			Replicas: r.cfg.StreamReplicas,
		})
		if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("fxcore: create stream %s: %w", name, err)
		}
		r.stores[name] = es
	}

	return r, nil
}

// EventStore returns the store backing a registered entity type.
func (r *Runtime) EventStore(entity string) (*EventStore, error) {
	es, ok := r.stores[entity]
	if !ok {
		return nil, configf("runtime", "unknown entity type %q", entity)
	}
	return es, nil
}

func (r *Runtime) actor(ctx context.Context, entity, id string) (*actor, error) {
	e, err := r.disp.Entity(entity)
	if err != nil {
		return nil, err
	}

	key := entity + "/" + id

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRuntimeClosed
	}
	a, ok := r.actors[key]
	if !ok {
		a = newActor(e, id, r.stores[entity], r.disp, r.log, r.cfg)
		r.actors[key] = a
		go a.run()
	}
	r.mu.Unlock()

	// The first-touch history fold does event log I/O and must not run
	// under the actor table lock. A slow fold stalls only this identity.
	if err := a.ensureActive(ctx); err != nil {
		r.mu.Lock()
		if r.actors[key] == a {
			delete(r.actors, key)
			r.mu.Unlock()
			a.stop()
		} else {
			r.mu.Unlock()
		}
		return nil, err
	}
	return a, nil
}

// Submit routes a command payload to the actor owning the entity identity
// and waits for the outcome of its turn. The payload must be a value of a
// registered command type. Validation failures and exhausted conflict
// retries surface synchronously; a nil error means the decided events, if
// any, are durable in the event log.
func (r *Runtime) Submit(ctx context.Context, entity, id string, data any) error {
	if id == "" {
		return rejectf(entity, id, fmt.Sprintf("%T", data), "entity id is required")
	}

	name, err := r.core.types.Lookup(data)
	if err != nil {
		return err
	}

	a, err := r.actor(ctx, entity, id)
	if err != nil {
		return err
	}

	return a.submit(ctx, &Command{
		ID:   r.core.id.New(),
		Type: name,
		Time: r.core.clock.Now(),
		Data: data,
	})
}

// Ask serves a read-only snapshot of the entity's current state. It may
// interleave with an in-flight command for the same identity since it
// mutates nothing. ErrEntityNotFound is reported for an identity with no
// event history.
func (r *Runtime) Ask(ctx context.Context, entity, id string) (any, error) {
	a, err := r.actor(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	return a.snapshot()
}

// Close stops every actor and rejects further submissions.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	actors := make([]*actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	for _, a := range actors {
		a.stop()
	}
}
