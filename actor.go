package fxcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// actor is the single-threaded unit of execution for one entity identity.
// All mutating commands for the identity funnel through its mailbox and are
// processed strictly one at a time, in arrival order. Snapshot reads are the
// one sanctioned exception and may interleave with an in-flight command.
type actor struct {
	entity  *Entity
	id      string
	subject string
	store   *EventStore
	disp    *Dispatcher
	log     *slog.Logger
	cfg     Config

	// Guards state and seq so snapshots can interleave with a command turn.
	mu    sync.RWMutex
	state State
	seq   uint64

	activateOnce sync.Once
	activateErr  error

	mailbox  chan *submission
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type submission struct {
	ctx   context.Context
	cmd   *Command
	reply chan error
}

func newActor(entity *Entity, id string, store *EventStore, disp *Dispatcher, log *slog.Logger, cfg Config) *actor {
	return &actor{
		entity:  entity,
		id:      id,
		subject: Subject(entity.Name, id),
		store:   store,
		disp:    disp,
		log:     log.With("entity", entity.Name, "id", id),
		cfg:     cfg,
		mailbox: make(chan *submission, cfg.MailboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ensureActive folds the event history on the actor's first touch, bounded
// by the command timeout. Concurrent first touches of the same identity wait
// for one fold; other identities never wait on it.
func (a *actor) ensureActive(ctx context.Context) error {
	a.activateOnce.Do(func() {
		actx, cancel := context.WithTimeout(ctx, a.cfg.CommandTimeout)
		defer cancel()
		a.activateErr = a.activate(actx)
	})
	return a.activateErr
}

// activate reconstructs the state by folding the full event history. A
// missing stream is not an error; the actor simply starts uninitialized.
func (a *actor) activate(ctx context.Context) error {
	state := a.entity.Init()
	seq, err := a.store.Evolve(ctx, a.subject, state)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.state = state
	a.seq = seq
	a.mu.Unlock()

	a.log.Debug("actor activated", "seq", seq)
	return nil
}

func (a *actor) run() {
	defer close(a.done)
	for {
		select {
		case s := <-a.mailbox:
			s.reply <- a.process(s)
		case <-a.quit:
			a.drain()
			return
		}
	}
}

// drain rejects every submission still queued at shutdown so no submitter
// is left waiting on a reply that will never come.
func (a *actor) drain() {
	for {
		select {
		case s := <-a.mailbox:
			s.reply <- ErrRuntimeClosed
		default:
			return
		}
	}
}

func (a *actor) stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}

// submit enqueues a command and waits for the outcome of its turn.
func (a *actor) submit(ctx context.Context, cmd *Command) error {
	s := &submission{ctx: ctx, cmd: cmd, reply: make(chan error, 1)}

	select {
	case a.mailbox <- s:
	case <-a.quit:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-s.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		// The worker has stopped and drained. A buffered reply, if any,
		// takes precedence; otherwise the submission slipped into the
		// mailbox after the drain and will never be served.
		select {
		case err := <-s.reply:
			return err
		default:
			return ErrRuntimeClosed
		}
	}
}

// snapshot serves a read-only copy of the current state. It does not pass
// through the mailbox since it mutates nothing.
func (a *actor) snapshot() (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.seq == 0 {
		return nil, ErrEntityNotFound
	}
	return a.state.Snapshot(), nil
}

// process runs one command turn: validate, gate on lifecycle, dispatch the
// handler, append the decided events under an expected-sequence guard, and
// fold them into local state. An append conflict reloads and retries the
// whole turn a bounded number of times.
func (a *actor) process(s *submission) error {
	ctx, cancel := context.WithTimeout(s.ctx, a.cfg.CommandTimeout)
	defer cancel()

	cmd := s.cmd

	if err := a.disp.ValidateCommand(a.entity.Name, a.id, cmd); err != nil {
		return err
	}

	handler, err := a.disp.Resolve(a.entity.Name, cmd.Type)
	if err != nil {
		return err
	}

	var committed []*Event

	op := func() error {
		if a.seq == 0 && !a.entity.creates(cmd.Type) {
			return backoff.Permanent(fmt.Errorf("%w: %s %q", ErrNotActive, a.entity.Name, a.id))
		}

		events, err := handler(ctx, a.state, cmd)
		if err != nil {
			return backoff.Permanent(err)
		}
		if len(events) == 0 {
			return nil
		}

		for _, e := range events {
			if e.Meta == nil {
				e.Meta = make(map[string]string)
			}
			e.Meta[MetaEntityID] = a.id
		}

		if _, err := a.store.Append(ctx, a.subject, events, ExpectSequence(a.seq)); err != nil {
			if errors.Is(err, ErrSequenceConflict) {
				a.log.Warn("append conflict, reloading", "command", cmd.Type, "seq", a.seq)
				if rerr := a.reload(ctx); rerr != nil {
					return backoff.Permanent(rerr)
				}
				return err
			}
			return backoff.Permanent(err)
		}

		committed = events
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = time.Second

	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, a.cfg.MaxConflictRetries), ctx))
	if err != nil {
		return err
	}

	if len(committed) == 0 {
		a.log.Debug("command was a no-op", "command", cmd.Type)
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range committed {
		if err := a.state.Evolve(e); err != nil {
			// The event is already durable but the in-memory fold failed.
			// Rebuild from the stream rather than serve half-applied state.
			state := a.entity.Init()
			if seq, rerr := a.store.Evolve(ctx, a.subject, state); rerr == nil {
				a.state = state
				a.seq = seq
			}
			return err
		}
		a.seq = e.Seq
	}

	a.log.Debug("command handled", "command", cmd.Type, "events", len(committed), "seq", a.seq)
	return nil
}

// reload folds any events appended by another writer since the actor's last
// known sequence.
func (a *actor) reload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	seq, err := a.store.Evolve(ctx, a.subject, a.state, AfterSequence(a.seq))
	if err != nil {
		return err
	}
	if seq > a.seq {
		a.seq = seq
	}
	return nil
}
