package conference

import (
	"time"

	"github.com/fortium/fxcore/billing"
)

// Commands.

// Create books a video conference between a user and a partner. The rate
// snapshot is validated against the booking window and captured on the
// creation event. Re-creating an existing conference is a benign no-op.
type Create struct {
	ConferenceID       string       `json:"conference_id" validate:"required,uuid4"`
	StartTime          time.Time    `json:"start_time" validate:"required"`
	EndTime            time.Time    `json:"end_time" validate:"required,gtfield=StartTime"`
	UserID             string       `json:"user_id" validate:"required,email"`
	PartnerID          string       `json:"partner_id" validate:"required,email"`
	Topic              string       `json:"topic" validate:"required"`
	ProblemDescription string       `json:"problem_description"`
	Rate               billing.Rate `json:"rate"`
}

// CompleteBooking records the outcome of the external booking flow:
// calendar entry, meet link, and the fee split.
type CompleteBooking struct {
	ConferenceID       string    `json:"conference_id" validate:"required,uuid4"`
	BookingCompletedAt time.Time `json:"booking_completed_at" validate:"required"`
	SessionFee         float64   `json:"session_fee" validate:"gte=0"`
	PartnerPayout      float64   `json:"partner_payout" validate:"gte=0"`
	PlatformFee        float64   `json:"platform_fee" validate:"gte=0"`
	MeetLink           string    `json:"meet_link" validate:"omitempty,url"`
	CalendarEventID    string    `json:"calendar_event_id"`
}

// CompleteSession records that the consultation took place.
type CompleteSession struct {
	ConferenceID string    `json:"conference_id" validate:"required,uuid4"`
	CompletedAt  time.Time `json:"completed_at" validate:"required"`
	Notes        string    `json:"notes"`
	Rating       int       `json:"rating" validate:"gte=0,lte=5"`
}

// CapturePayment records the charge for a completed session. Capturing an
// already captured payment is a no-op.
type CapturePayment struct {
	ConferenceID string    `json:"conference_id" validate:"required,uuid4"`
	CapturedAt   time.Time `json:"captured_at" validate:"required"`
	ChargeID     string    `json:"charge_id" validate:"required"`
}

// Cancel retires a scheduled conference. History is kept; nothing is
// deleted.
type Cancel struct {
	ConferenceID string    `json:"conference_id" validate:"required,uuid4"`
	CancelledAt  time.Time `json:"cancelled_at" validate:"required"`
	Reason       string    `json:"reason"`
}

// Events.

type Created struct {
	ConferenceID       string       `json:"conference_id"`
	StartTime          time.Time    `json:"start_time"`
	EndTime            time.Time    `json:"end_time"`
	UserID             string       `json:"user_id"`
	PartnerID          string       `json:"partner_id"`
	Topic              string       `json:"topic"`
	ProblemDescription string       `json:"problem_description"`
	Rate               billing.Rate `json:"rate"`
}

// BookingCompleted carries the fields denormalized for cross-stream views,
// such as the partner statistics keyed by partner email.
type BookingCompleted struct {
	ConferenceID       string    `json:"conference_id"`
	UserID             string    `json:"user_id"`
	PartnerID          string    `json:"partner_id"`
	Topic              string    `json:"topic"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	BookingCompletedAt time.Time `json:"booking_completed_at"`
	SessionFee         float64   `json:"session_fee"`
	PartnerPayout      float64   `json:"partner_payout"`
	PlatformFee        float64   `json:"platform_fee"`
	MeetLink           string    `json:"meet_link"`
	CalendarEventID    string    `json:"calendar_event_id"`
}

type SessionCompleted struct {
	ConferenceID string    `json:"conference_id"`
	PartnerID    string    `json:"partner_id"`
	CompletedAt  time.Time `json:"completed_at"`
	Notes        string    `json:"notes"`
	Rating       int       `json:"rating"`
}

type PaymentCaptured struct {
	ConferenceID string    `json:"conference_id"`
	CapturedAt   time.Time `json:"captured_at"`
	ChargeID     string    `json:"charge_id"`
}

type Cancelled struct {
	ConferenceID string    `json:"conference_id"`
	PartnerID    string    `json:"partner_id"`
	CancelledAt  time.Time `json:"cancelled_at"`
	Reason       string    `json:"reason"`
}
