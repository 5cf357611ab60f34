package fxcore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fortium/fxcore/testutil"
	"github.com/fortium/fxcore/types"
)

type accountBalance struct {
	Owner    string `json:"owner"`
	Balance  int    `json:"balance"`
	Deposits int    `json:"deposits"`
}

func balanceView() *ViewDef {
	return &ViewDef{
		Name:   "account-balance",
		Source: "accounts",
		Init:   func() any { return &accountBalance{} },
		Keys: func(e *Event) []string {
			if id := e.EntityID(); id != "" {
				return []string{id}
			}
			return nil
		},
		Apply: func(view any, e *Event) error {
			v := view.(*accountBalance)
			switch d := e.Data.(type) {
			case *accountOpened:
				v.Owner = d.Owner
			case *fundsDeposited:
				v.Balance += d.Amount
				v.Deposits++
			case *fundsWithdrawn:
				v.Balance -= d.Amount
			}
			return nil
		},
	}
}

func setupProjection(t *testing.T) (*Runtime, *ProjectionEngine) {
	t.Helper()

	srv := testutil.NewNatsServer(-1)
	t.Cleanup(func() { testutil.ShutdownNatsServer(srv) })

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { nc.Drain() })

	all, err := types.Merge(accountTypes(), map[string]*types.Type{
		"account-balance": {Init: func() any { return &accountBalance{} }},
	})
	if err != nil {
		t.Fatal(err)
	}
	reg, err := types.NewRegistry(all)
	if err != nil {
		t.Fatal(err)
	}

	core, err := New(nc, TypeRegistry(reg), Logger(testutil.NewLogger()))
	if err != nil {
		t.Fatal(err)
	}

	disp, err := NewDispatcher(core, accountEntity())
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.MemoryStorage = true
	rt, err := NewRuntime(core, disp, WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rt.Close)

	return rt, NewProjectionEngine(core)
}

func TestProjectionEngineFoldsLiveEvents(t *testing.T) {
	is := testutil.NewIs(t)
	rt, pe := setupProjection(t)
	ctx := context.Background()

	is.NoErr(pe.Register(balanceView()))
	is.NoErr(pe.Start(ctx))
	t.Cleanup(pe.Close)

	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &openAccount{AccountID: "acc-1", Owner: "ada"}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &depositFunds{AccountID: "acc-1", Amount: 100}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &withdrawFunds{AccountID: "acc-1", Amount: 30}))

	testutil.Eventually(t, 5*time.Second, func() bool {
		v, err := pe.Load("account-balance", "acc-1")
		return err == nil && v.(*accountBalance).Balance == 70
	})

	v, err := pe.Load("account-balance", "acc-1")
	is.NoErr(err)
	is.Equal(v.(*accountBalance).Owner, "ada")
	is.Equal(v.(*accountBalance).Deposits, 1)
}

func TestProjectionEngineRebuildsOnStart(t *testing.T) {
	is := testutil.NewIs(t)
	rt, pe := setupProjection(t)
	ctx := context.Background()

	// The history exists before the engine ever runs.
	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &openAccount{AccountID: "acc-1", Owner: "ada"}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &depositFunds{AccountID: "acc-1", Amount: 55}))

	is.NoErr(pe.Register(balanceView()))
	is.NoErr(pe.Start(ctx))
	t.Cleanup(pe.Close)

	testutil.Eventually(t, 5*time.Second, func() bool {
		v, err := pe.Load("account-balance", "acc-1")
		return err == nil && v.(*accountBalance).Balance == 55
	})
}

func TestProjectionEngineKeysAcrossEntities(t *testing.T) {
	is := testutil.NewIs(t)
	rt, pe := setupProjection(t)
	ctx := context.Background()

	// One view keyed by owner aggregates across account streams. The same
	// owner may hold many accounts.
	byOwner := &ViewDef{
		Name:   "account-balance",
		Source: "accounts",
		Init:   func() any { return &accountBalance{} },
		Keys: func(e *Event) []string {
			if _, ok := e.Data.(*fundsDeposited); ok {
				return []string{"all"}
			}
			return nil
		},
		Apply: func(view any, e *Event) error {
			v := view.(*accountBalance)
			v.Balance += e.Data.(*fundsDeposited).Amount
			v.Deposits++
			return nil
		},
	}

	is.NoErr(pe.Register(byOwner))
	is.NoErr(pe.Start(ctx))
	t.Cleanup(pe.Close)

	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &openAccount{AccountID: "acc-1", Owner: "ada"}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-2", &openAccount{AccountID: "acc-2", Owner: "ada"}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &depositFunds{AccountID: "acc-1", Amount: 10}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-2", &depositFunds{AccountID: "acc-2", Amount: 20}))

	testutil.Eventually(t, 5*time.Second, func() bool {
		v, err := pe.Load("account-balance", "all")
		return err == nil && v.(*accountBalance).Balance == 30 && v.(*accountBalance).Deposits == 2
	})
}

func TestProjectionEngineViewNotFound(t *testing.T) {
	is := testutil.NewIs(t)
	_, pe := setupProjection(t)

	is.NoErr(pe.Register(balanceView()))
	is.NoErr(pe.Start(context.Background()))
	t.Cleanup(pe.Close)

	_, err := pe.Load("account-balance", "ghost")
	is.Err(err, ErrViewNotFound)

	_, err = pe.Load("never-registered", "acc-1")
	is.Err(err, ErrConfiguration)
}

func TestProjectionEngineRegisterValidation(t *testing.T) {
	is := testutil.NewIs(t)
	_, pe := setupProjection(t)

	// The view type must be in the registry.
	err := pe.Register(&ViewDef{
		Name:   "not-registered",
		Source: "accounts",
		Init:   func() any { return &struct{ X int }{} },
		Keys:   func(e *Event) []string { return nil },
		Apply:  func(view any, e *Event) error { return nil },
	})
	is.Err(err, ErrConfiguration)

	v := balanceView()
	v.Keys = nil
	is.Err(pe.Register(v), ErrConfiguration)

	v = balanceView()
	v.Source = ""
	is.Err(pe.Register(v), ErrConfiguration)
}

func TestProjectionEngineRetriesFailedFolds(t *testing.T) {
	is := testutil.NewIs(t)
	rt, pe := setupProjection(t)
	ctx := context.Background()

	// The first attempt at folding the deposit fails. A retry must pick
	// the event back up so the view does not silently fall behind.
	var failures atomic.Int64
	def := balanceView()
	inner := def.Apply
	def.Apply = func(view any, e *Event) error {
		if _, ok := e.Data.(*fundsDeposited); ok && failures.CompareAndSwap(0, 1) {
			return errors.New("transient store hiccup")
		}
		return inner(view, e)
	}

	is.NoErr(pe.Register(def))
	is.NoErr(pe.Start(ctx))
	t.Cleanup(pe.Close)

	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &openAccount{AccountID: "acc-1", Owner: "ada"}))
	is.NoErr(rt.Submit(ctx, "accounts", "acc-1", &depositFunds{AccountID: "acc-1", Amount: 40}))

	testutil.Eventually(t, 5*time.Second, func() bool {
		v, err := pe.Load("account-balance", "acc-1")
		return err == nil && v.(*accountBalance).Balance == 40
	})
	is.Equal(failures.Load(), int64(1))
}
