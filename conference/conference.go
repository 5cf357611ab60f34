// Package conference models a booked video consultation as an event-sourced
// aggregate, from creation through booking completion, the session itself,
// and payment capture. The rate in effect at creation time is captured on
// the creation event and never changes afterwards, even if the partner's
// schedule does.
package conference

import (
	"fmt"
	"time"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/billing"
)

// Status of a conference within its folded state. The aggregate itself only
// knows uninitialized and active; these flags live inside the state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Conference is the aggregate state, rebuilt by folding the conference's
// event stream.
type Conference struct {
	ID                 string
	UserID             string
	PartnerID          string
	Topic              string
	ProblemDescription string
	StartTime          time.Time
	EndTime            time.Time
	Rate               billing.Rate
	Status             Status

	BookingCompletedAt time.Time
	SessionFee         float64
	PartnerPayout      float64
	PlatformFee        float64
	MeetLink           string
	CalendarEventID    string

	SessionCompletedAt time.Time
	SessionNotes       string
	SessionRating      int

	PaymentCaptured   bool
	PaymentCapturedAt time.Time
	ChargeID          string

	CancelledAt  time.Time
	CancelReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EstimatedCost computes the session cost from the captured rate snapshot.
func (c *Conference) EstimatedCost() float64 {
	return c.Rate.CalculateCost(c.StartTime, c.EndTime)
}

func (c *Conference) Evolve(e *fxcore.Event) error {
	switch d := e.Data.(type) {
	case *Created:
		c.ID = d.ConferenceID
		c.UserID = d.UserID
		c.PartnerID = d.PartnerID
		c.Topic = d.Topic
		c.ProblemDescription = d.ProblemDescription
		c.StartTime = d.StartTime
		c.EndTime = d.EndTime
		c.Rate = d.Rate
		c.Status = StatusScheduled
		c.CreatedAt = e.Time
	case *BookingCompleted:
		c.BookingCompletedAt = d.BookingCompletedAt
		c.SessionFee = d.SessionFee
		c.PartnerPayout = d.PartnerPayout
		c.PlatformFee = d.PlatformFee
		c.MeetLink = d.MeetLink
		c.CalendarEventID = d.CalendarEventID
	case *SessionCompleted:
		c.Status = StatusCompleted
		c.SessionCompletedAt = d.CompletedAt
		c.SessionNotes = d.Notes
		c.SessionRating = d.Rating
	case *PaymentCaptured:
		c.PaymentCaptured = true
		c.PaymentCapturedAt = d.CapturedAt
		c.ChargeID = d.ChargeID
	case *Cancelled:
		c.Status = StatusCancelled
		c.CancelledAt = d.CancelledAt
		c.CancelReason = d.Reason
	default:
		return fmt.Errorf("conference: unknown event type %T", e.Data)
	}

	c.UpdatedAt = e.Time
	return nil
}

func (c *Conference) Snapshot() any {
	return &Snapshot{
		ID:                 c.ID,
		UserID:             c.UserID,
		PartnerID:          c.PartnerID,
		Topic:              c.Topic,
		ProblemDescription: c.ProblemDescription,
		StartTime:          c.StartTime,
		EndTime:            c.EndTime,
		Rate:               c.Rate,
		Status:             c.Status,
		BookingCompletedAt: c.BookingCompletedAt,
		SessionFee:         c.SessionFee,
		PartnerPayout:      c.PartnerPayout,
		PlatformFee:        c.PlatformFee,
		MeetLink:           c.MeetLink,
		CalendarEventID:    c.CalendarEventID,
		SessionCompletedAt: c.SessionCompletedAt,
		SessionNotes:       c.SessionNotes,
		SessionRating:      c.SessionRating,
		PaymentCaptured:    c.PaymentCaptured,
		PaymentCapturedAt:  c.PaymentCapturedAt,
		ChargeID:           c.ChargeID,
		CancelledAt:        c.CancelledAt,
		CancelReason:       c.CancelReason,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		EstimatedCost:      c.EstimatedCost(),
	}
}

// Snapshot is the externally visible copy of a conference's state.
type Snapshot struct {
	ID                 string
	UserID             string
	PartnerID          string
	Topic              string
	ProblemDescription string
	StartTime          time.Time
	EndTime            time.Time
	Rate               billing.Rate
	Status             Status

	BookingCompletedAt time.Time
	SessionFee         float64
	PartnerPayout      float64
	PlatformFee        float64
	MeetLink           string
	CalendarEventID    string

	SessionCompletedAt time.Time
	SessionNotes       string
	SessionRating      int

	PaymentCaptured   bool
	PaymentCapturedAt time.Time
	ChargeID          string

	CancelledAt  time.Time
	CancelReason string

	CreatedAt time.Time
	UpdatedAt time.Time

	EstimatedCost float64
}
