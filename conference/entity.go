package conference

import (
	"context"
	"log/slog"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/types"
)

// EntityName is the conference stream name.
const EntityName = "conferences"

// Types returns the registry fragment for the conference commands, events,
// and views.
func Types() map[string]*types.Type {
	return map[string]*types.Type{
		"create-conference": {Init: func() any { return &Create{} }},
		"complete-booking":  {Init: func() any { return &CompleteBooking{} }},
		"complete-session":  {Init: func() any { return &CompleteSession{} }},
		"capture-payment":   {Init: func() any { return &CapturePayment{} }},
		"cancel-conference": {Init: func() any { return &Cancel{} }},

		"conference-created":   {Init: func() any { return &Created{} }},
		"booking-completed":    {Init: func() any { return &BookingCompleted{} }},
		"session-completed":    {Init: func() any { return &SessionCompleted{} }},
		"payment-captured":     {Init: func() any { return &PaymentCaptured{} }},
		"conference-cancelled": {Init: func() any { return &Cancelled{} }},

		"session-history":       {Init: func() any { return &SessionHistory{} }},
		"partner-session-stats": {Init: func() any { return &PartnerStats{} }},
	}
}

// Entity wires the conference aggregate.
func Entity(log *slog.Logger) *fxcore.Entity {
	log = log.With("aggregate", EntityName)

	return &fxcore.Entity{
		Name: EntityName,
		Init: func() fxcore.State { return &Conference{} },
		Creates: []string{
			"create-conference",
		},
		Events: []string{
			"conference-created",
			"booking-completed",
			"session-completed",
			"payment-captured",
			"conference-cancelled",
		},
		Commands: map[string]fxcore.HandlerFunc{
			"create-conference": create(log),
			"complete-booking":  completeBooking(log),
			"complete-session":  completeSession(log),
			"capture-payment":   capturePayment(log),
			"cancel-conference": cancel(log),
		},
	}
}

func create(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := state.(*Conference)
		d := cmd.Data.(*Create)

		if c.Status != "" {
			log.Info("conference already exists, ignoring duplicate create", "conference", d.ConferenceID)
			return fxcore.NoEvents()
		}

		// The rate must cover the whole booking window. The snapshot taken
		// here stays with the conference for good.
		if err := d.Rate.ValidFor(d.StartTime, d.EndTime); err != nil {
			return nil, fxcore.Reject(EntityName, d.ConferenceID, cmd.Type, err.Error())
		}

		log.Info("creating conference",
			"conference", d.ConferenceID, "user", d.UserID, "partner", d.PartnerID)
		return fxcore.Emit(&Created{
			ConferenceID:       d.ConferenceID,
			StartTime:          d.StartTime,
			EndTime:            d.EndTime,
			UserID:             d.UserID,
			PartnerID:          d.PartnerID,
			Topic:              d.Topic,
			ProblemDescription: d.ProblemDescription,
			Rate:               d.Rate,
		})
	}
}

func completeBooking(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := state.(*Conference)
		d := cmd.Data.(*CompleteBooking)

		if c.Status != StatusScheduled {
			return nil, fxcore.Reject(EntityName, d.ConferenceID, cmd.Type, "conference is not scheduled")
		}
		if !c.BookingCompletedAt.IsZero() {
			log.Debug("booking already completed", "conference", d.ConferenceID)
			return fxcore.NoEvents()
		}

		log.Info("booking completed", "conference", d.ConferenceID, "fee", d.SessionFee)
		return fxcore.Emit(&BookingCompleted{
			ConferenceID:       d.ConferenceID,
			UserID:             c.UserID,
			PartnerID:          c.PartnerID,
			Topic:              c.Topic,
			StartTime:          c.StartTime,
			EndTime:            c.EndTime,
			BookingCompletedAt: d.BookingCompletedAt,
			SessionFee:         d.SessionFee,
			PartnerPayout:      d.PartnerPayout,
			PlatformFee:        d.PlatformFee,
			MeetLink:           d.MeetLink,
			CalendarEventID:    d.CalendarEventID,
		})
	}
}

func completeSession(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := state.(*Conference)
		d := cmd.Data.(*CompleteSession)

		switch c.Status {
		case StatusScheduled:
		case StatusCompleted:
			log.Debug("session already completed", "conference", d.ConferenceID)
			return fxcore.NoEvents()
		default:
			return nil, fxcore.Reject(EntityName, d.ConferenceID, cmd.Type, "conference was cancelled")
		}

		log.Info("session completed", "conference", d.ConferenceID, "rating", d.Rating)
		return fxcore.Emit(&SessionCompleted{
			ConferenceID: d.ConferenceID,
			PartnerID:    c.PartnerID,
			CompletedAt:  d.CompletedAt,
			Notes:        d.Notes,
			Rating:       d.Rating,
		})
	}
}

func capturePayment(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := state.(*Conference)
		d := cmd.Data.(*CapturePayment)

		if c.Status != StatusCompleted {
			return nil, fxcore.Reject(EntityName, d.ConferenceID, cmd.Type, "session is not completed")
		}
		if c.PaymentCaptured {
			log.Debug("payment already captured", "conference", d.ConferenceID)
			return fxcore.NoEvents()
		}

		log.Info("payment captured", "conference", d.ConferenceID, "charge", d.ChargeID)
		return fxcore.Emit(&PaymentCaptured{
			ConferenceID: d.ConferenceID,
			CapturedAt:   d.CapturedAt,
			ChargeID:     d.ChargeID,
		})
	}
}

func cancel(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := state.(*Conference)
		d := cmd.Data.(*Cancel)

		switch c.Status {
		case StatusScheduled:
		case StatusCancelled:
			log.Debug("conference already cancelled", "conference", d.ConferenceID)
			return fxcore.NoEvents()
		default:
			return nil, fxcore.Reject(EntityName, d.ConferenceID, cmd.Type, "session already completed")
		}

		log.Info("conference cancelled", "conference", d.ConferenceID, "reason", d.Reason)
		return fxcore.Emit(&Cancelled{
			ConferenceID: d.ConferenceID,
			PartnerID:    c.PartnerID,
			CancelledAt:  d.CancelledAt,
			Reason:       d.Reason,
		})
	}
}
