package fxcore

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fortium/fxcore/testutil"
	"github.com/fortium/fxcore/types"
)

func setupStore(t *testing.T) (*Core, *EventStore) {
	t.Helper()

	srv := testutil.NewNatsServer(-1)
	t.Cleanup(func() { testutil.ShutdownNatsServer(srv) })

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { nc.Drain() })

	reg, err := types.NewRegistry(accountTypes())
	if err != nil {
		t.Fatal(err)
	}

	core, err := New(nc,
		TypeRegistry(reg),
		Clock(testutil.NewClock(time.Second)),
		Logger(testutil.NewLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}

	es := core.EventStore("accounts")
	if err := es.Create(&nats.StreamConfig{Storage: nats.MemoryStorage}); err != nil {
		t.Fatal(err)
	}
	return core, es
}

func TestEventStoreAppendLoad(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	subject := Subject("accounts", "acc-1")
	seq, err := es.Append(ctx, subject, []*Event{
		{Data: &accountOpened{AccountID: "acc-1", Owner: "ada"}},
		{Data: &fundsDeposited{AccountID: "acc-1", Amount: 100}},
	}, ExpectSequence(0))
	is.NoErr(err)
	is.Equal(seq, uint64(2))

	events, lseq, err := es.Load(ctx, subject)
	is.NoErr(err)
	is.Equal(lseq, uint64(2))
	is.Equal(len(events), 2)

	// Type names resolve from the registry, ids and times are filled in.
	is.Equal(events[0].Type, "account-opened")
	is.Equal(events[1].Type, "funds-deposited")
	is.True(events[0].ID != "")
	is.True(!events[0].Time.IsZero())
	is.Equal(events[0].Data.(*accountOpened).Owner, "ada")
	is.Equal(events[1].Data.(*fundsDeposited).Amount, 100)
	is.Equal(events[0].Stream, "accounts")
}

func TestEventStoreLoadEmpty(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)

	events, seq, err := es.Load(context.Background(), Subject("accounts", "never"))
	is.NoErr(err)
	is.Equal(seq, uint64(0))
	is.Equal(len(events), 0)
}

func TestEventStoreAfterSequence(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	subject := Subject("accounts", "acc-1")
	_, err := es.Append(ctx, subject, []*Event{
		{Data: &accountOpened{AccountID: "acc-1", Owner: "ada"}},
		{Data: &fundsDeposited{AccountID: "acc-1", Amount: 100}},
		{Data: &fundsWithdrawn{AccountID: "acc-1", Amount: 25}},
	})
	is.NoErr(err)

	events, seq, err := es.Load(ctx, subject, AfterSequence(1))
	is.NoErr(err)
	is.Equal(seq, uint64(3))
	is.Equal(len(events), 2)
	is.Equal(events[0].Type, "funds-deposited")

	// Already caught up.
	events, seq, err = es.Load(ctx, subject, AfterSequence(3))
	is.NoErr(err)
	is.Equal(seq, uint64(3))
	is.Equal(len(events), 0)
}

func TestEventStoreSequenceConflict(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	subject := Subject("accounts", "acc-1")
	_, err := es.Append(ctx, subject, []*Event{
		{Data: &accountOpened{AccountID: "acc-1", Owner: "ada"}},
	}, ExpectSequence(0))
	is.NoErr(err)

	// A second writer with the same expectation loses the race.
	_, err = es.Append(ctx, subject, []*Event{
		{Data: &fundsDeposited{AccountID: "acc-1", Amount: 100}},
	}, ExpectSequence(0))
	is.Err(err, ErrSequenceConflict)
}

func TestEventStoreInterleavedSubjects(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	one := Subject("accounts", "acc-1")
	two := Subject("accounts", "acc-2")

	seq1, err := es.Append(ctx, one, []*Event{
		{Data: &accountOpened{AccountID: "acc-1", Owner: "ada"}},
	}, ExpectSequence(0))
	is.NoErr(err)

	_, err = es.Append(ctx, two, []*Event{
		{Data: &accountOpened{AccountID: "acc-2", Owner: "grace"}},
	}, ExpectSequence(0))
	is.NoErr(err)

	// acc-2's event advanced the stream but not acc-1's subject, so the
	// expectation from acc-1's last append still holds, including within a
	// multi-event batch.
	seq1, err = es.Append(ctx, one, []*Event{
		{Data: &fundsDeposited{AccountID: "acc-1", Amount: 10}},
		{Data: &fundsDeposited{AccountID: "acc-1", Amount: 20}},
	}, ExpectSequence(seq1))
	is.NoErr(err)

	events, lseq, err := es.Load(ctx, one)
	is.NoErr(err)
	is.Equal(lseq, seq1)
	is.Equal(len(events), 3)
}

func TestEventStoreEvolve(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	subject := Subject("accounts", "acc-1")
	_, err := es.Append(ctx, subject, []*Event{
		{Data: &accountOpened{AccountID: "acc-1", Owner: "ada"}},
		{Data: &fundsDeposited{AccountID: "acc-1", Amount: 100}},
		{Data: &fundsWithdrawn{AccountID: "acc-1", Amount: 30}},
	})
	is.NoErr(err)

	var a account
	seq, err := es.Evolve(ctx, subject, &a)
	is.NoErr(err)
	is.Equal(seq, uint64(3))
	is.Equal(a.Balance, 70)

	// Partial catch-up from a known sequence.
	b := account{ID: "acc-1", Owner: "ada", Open: true, Balance: 100}
	seq, err = es.Evolve(ctx, subject, &b, AfterSequence(2))
	is.NoErr(err)
	is.Equal(seq, uint64(3))
	is.Equal(b.Balance, 70)
}

func TestEventStoreMetaRoundTrip(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	subject := Subject("accounts", "acc-1")
	_, err := es.Append(ctx, subject, []*Event{
		{
			Data: &accountOpened{AccountID: "acc-1", Owner: "ada"},
			Meta: map[string]string{MetaEntityID: "acc-1"},
		},
	})
	is.NoErr(err)

	events, _, err := es.Load(ctx, subject)
	is.NoErr(err)
	is.Equal(len(events), 1)
	is.Equal(events[0].EntityID(), "acc-1")
}

func TestEventStoreBinaryPayloadNeedsType(t *testing.T) {
	is := testutil.NewIs(t)
	_, es := setupStore(t)
	ctx := context.Background()

	_, err := es.Append(ctx, Subject("accounts", "acc-1"), []*Event{
		{Data: []byte("opaque")},
	})
	is.Err(err, ErrEventTypeRequired)
}
