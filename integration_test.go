package fxcore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/billing"
	"github.com/fortium/fxcore/conference"
	"github.com/fortium/fxcore/partner"
	"github.com/fortium/fxcore/testutil"
	"github.com/fortium/fxcore/types"
	"github.com/fortium/fxcore/user"
)

type system struct {
	rt *fxcore.Runtime
	ch *fxcore.Choreography
	pe *fxcore.ProjectionEngine
}

func setupSystem(t *testing.T) *system {
	t.Helper()

	srv := testutil.NewNatsServer(-1)
	t.Cleanup(func() { testutil.ShutdownNatsServer(srv) })

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { nc.Drain() })

	all, err := types.Merge(partner.Types(), user.Types(), conference.Types())
	if err != nil {
		t.Fatal(err)
	}
	reg, err := types.NewRegistry(all)
	if err != nil {
		t.Fatal(err)
	}

	log := testutil.NewLogger()
	core, err := fxcore.New(nc, fxcore.TypeRegistry(reg), fxcore.Logger(log))
	if err != nil {
		t.Fatal(err)
	}

	disp, err := fxcore.NewDispatcher(core,
		partner.Entity(log),
		user.Entity(log),
		conference.Entity(log),
	)
	if err != nil {
		t.Fatal(err)
	}

	cfg := fxcore.DefaultConfig()
	cfg.MemoryStorage = true
	cfg.AckWait = time.Second

	rt, err := fxcore.NewRuntime(core, disp, fxcore.WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rt.Close)

	ch := fxcore.NewChoreography(core, rt)
	if err := ch.Register(conference.FanoutReaction(log)); err != nil {
		t.Fatal(err)
	}

	pe := fxcore.NewProjectionEngine(core)
	err = pe.Register(partner.ProfileView(), conference.HistoryView(), conference.StatsView())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := ch.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ch.Close)
	if err := pe.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pe.Close)

	return &system{rt: rt, ch: ch, pe: pe}
}

func TestBookingLifecycle(t *testing.T) {
	is := testutil.NewIs(t)
	sys := setupSystem(t)
	ctx := context.Background()

	const (
		partnerID = "ada@fortium.dev"
		userID    = "grace@example.com"
	)
	confID := uuid.NewString()

	is.NoErr(sys.rt.Submit(ctx, partner.EntityName, partnerID, &partner.Create{
		EmailAddress: partnerID, FirstName: "Ada", LastName: "Lovelace",
	}))
	is.NoErr(sys.rt.Submit(ctx, partner.EntityName, partnerID, &partner.AddSkill{
		EmailAddress: partnerID, Skills: []string{"architecture", "scaling"},
	}))
	is.NoErr(sys.rt.Submit(ctx, user.EntityName, userID, &user.Create{
		EmailAddress: userID, FirstName: "Grace", LastName: "Hopper",
	}))

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(30 * time.Minute)
	rate := billing.Rate{
		PerMinute:     2.50,
		MinimumCharge: 50,
		Active:        true,
	}

	is.NoErr(sys.rt.Submit(ctx, conference.EntityName, confID, &conference.Create{
		ConferenceID: confID,
		StartTime:    start,
		EndTime:      end,
		UserID:       userID,
		PartnerID:    partnerID,
		Topic:        "scaling the ingest pipeline",
		Rate:         rate,
	}))

	// The fan-out reaction links the conference to both parties.
	testutil.Eventually(t, 10*time.Second, func() bool {
		p, err := sys.rt.Ask(ctx, partner.EntityName, partnerID)
		if err != nil {
			return false
		}
		u, err := sys.rt.Ask(ctx, user.EntityName, userID)
		if err != nil {
			return false
		}
		return len(p.(*partner.Snapshot).Conferences) == 1 &&
			len(u.(*user.Snapshot).Conferences) == 1
	})

	p, err := sys.rt.Ask(ctx, partner.EntityName, partnerID)
	is.NoErr(err)
	is.Equal(p.(*partner.Snapshot).Conferences, []string{confID})
	is.Equal(p.(*partner.Snapshot).FullName(), "Ada Lovelace")

	// Walk the session through booking, delivery, and payment.
	is.NoErr(sys.rt.Submit(ctx, conference.EntityName, confID, &conference.CompleteBooking{
		ConferenceID:       confID,
		BookingCompletedAt: start.Add(-time.Hour),
		SessionFee:         75,
		PartnerPayout:      60,
		PlatformFee:        15,
		MeetLink:           "https://meet.example.com/x",
	}))
	is.NoErr(sys.rt.Submit(ctx, conference.EntityName, confID, &conference.CompleteSession{
		ConferenceID: confID,
		CompletedAt:  end,
		Rating:       5,
	}))
	is.NoErr(sys.rt.Submit(ctx, conference.EntityName, confID, &conference.CapturePayment{
		ConferenceID: confID,
		CapturedAt:   end.Add(time.Minute),
		ChargeID:     "ch_123",
	}))

	snap, err := sys.rt.Ask(ctx, conference.EntityName, confID)
	is.NoErr(err)
	c := snap.(*conference.Snapshot)
	is.Equal(c.Status, conference.StatusCompleted)
	is.True(c.PaymentCaptured)
	is.Equal(c.EstimatedCost, 75.0)

	// Read models converge on the same history.
	testutil.Eventually(t, 10*time.Second, func() bool {
		v, err := sys.pe.Load("session-history", confID)
		return err == nil && v.(*conference.SessionHistory).PaymentCaptured
	})

	v, err := sys.pe.Load("session-history", confID)
	is.NoErr(err)
	h := v.(*conference.SessionHistory)
	is.Equal(h.Status, conference.StatusCompleted)
	is.Equal(h.EstimatedCost, 75.0)
	is.Equal(h.Rating, 5)
	is.Equal(h.UserID, userID)

	testutil.Eventually(t, 10*time.Second, func() bool {
		v, err := sys.pe.Load("partner-session-stats", partnerID)
		return err == nil && v.(*conference.PartnerStats).SessionsCompleted == 1
	})

	v, err = sys.pe.Load("partner-session-stats", partnerID)
	is.NoErr(err)
	stats := v.(*conference.PartnerStats)
	is.Equal(stats.BookingsCompleted, 1)
	is.Equal(stats.TotalPayout, 60.0)
	is.Equal(stats.AverageRating, 5.0)

	testutil.Eventually(t, 10*time.Second, func() bool {
		v, err := sys.pe.Load("partner-profile", partnerID)
		return err == nil && v.(*partner.Profile).Engagements == 1
	})
}

func TestBookingRejectedOnExpiredRate(t *testing.T) {
	is := testutil.NewIs(t)
	sys := setupSystem(t)
	ctx := context.Background()

	confID := uuid.NewString()
	start := time.Now().UTC().Add(24 * time.Hour)
	rate := billing.Rate{
		PerMinute: 2.50,
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	err := sys.rt.Submit(ctx, conference.EntityName, confID, &conference.Create{
		ConferenceID: confID,
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		UserID:       "grace@example.com",
		PartnerID:    "ada@fortium.dev",
		Topic:        "anything",
		Rate:         rate,
	})
	is.Err(err, fxcore.ErrValidation)

	// Nothing was created.
	_, err = sys.rt.Ask(ctx, conference.EntityName, confID)
	is.Err(err, fxcore.ErrEntityNotFound)
}

func TestDerivedCommandsAreIdempotent(t *testing.T) {
	is := testutil.NewIs(t)
	sys := setupSystem(t)
	ctx := context.Background()

	const partnerID = "ada@fortium.dev"
	confID := uuid.NewString()

	is.NoErr(sys.rt.Submit(ctx, partner.EntityName, partnerID, &partner.Create{
		EmailAddress: partnerID, FirstName: "Ada", LastName: "Lovelace",
	}))
	is.NoErr(sys.rt.Submit(ctx, user.EntityName, "grace@example.com", &user.Create{
		EmailAddress: "grace@example.com", FirstName: "Grace", LastName: "Hopper",
	}))

	start := time.Now().UTC().Add(24 * time.Hour)
	is.NoErr(sys.rt.Submit(ctx, conference.EntityName, confID, &conference.Create{
		ConferenceID: confID,
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		UserID:       "grace@example.com",
		PartnerID:    partnerID,
		Topic:        "anything",
		Rate:         billing.Rate{PerMinute: 1, Active: true},
	}))

	testutil.Eventually(t, 10*time.Second, func() bool {
		p, err := sys.rt.Ask(ctx, partner.EntityName, partnerID)
		return err == nil && len(p.(*partner.Snapshot).Conferences) == 1
	})

	// Delivering the same link again, as a redelivery would, changes
	// nothing.
	is.NoErr(sys.rt.Submit(ctx, partner.EntityName, partnerID, &partner.AddConference{
		EmailAddress: partnerID, ConferenceID: confID,
	}))

	p, err := sys.rt.Ask(ctx, partner.EntityName, partnerID)
	is.NoErr(err)
	is.Equal(p.(*partner.Snapshot).Conferences, []string{confID})
}
