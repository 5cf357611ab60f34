package conference

import (
	"time"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/billing"
)

// SessionHistory is the per-conference read model: one record per booking,
// updated through its whole lifecycle.
type SessionHistory struct {
	ConferenceID       string       `json:"conference_id"`
	UserID             string       `json:"user_id"`
	PartnerID          string       `json:"partner_id"`
	Topic              string       `json:"topic"`
	StartTime          time.Time    `json:"start_time"`
	EndTime            time.Time    `json:"end_time"`
	Rate               billing.Rate `json:"rate"`
	EstimatedCost      float64      `json:"estimated_cost"`
	Status             Status       `json:"status"`
	MeetLink           string       `json:"meet_link"`
	SessionFee         float64      `json:"session_fee"`
	PartnerPayout      float64      `json:"partner_payout"`
	SessionCompletedAt time.Time    `json:"session_completed_at"`
	Rating             int          `json:"rating"`
	PaymentCaptured    bool         `json:"payment_captured"`
	CancelReason       string       `json:"cancel_reason"`
}

// HistoryView defines the session history projection, keyed by conference id.
func HistoryView() *fxcore.ViewDef {
	return &fxcore.ViewDef{
		Name:   "session-history",
		Source: EntityName,
		Init:   func() any { return &SessionHistory{} },
		Keys: func(e *fxcore.Event) []string {
			if id := e.EntityID(); id != "" {
				return []string{id}
			}
			return nil
		},
		Apply: func(view any, e *fxcore.Event) error {
			v := view.(*SessionHistory)
			switch d := e.Data.(type) {
			case *Created:
				v.ConferenceID = d.ConferenceID
				v.UserID = d.UserID
				v.PartnerID = d.PartnerID
				v.Topic = d.Topic
				v.StartTime = d.StartTime
				v.EndTime = d.EndTime
				v.Rate = d.Rate
				v.EstimatedCost = d.Rate.CalculateCost(d.StartTime, d.EndTime)
				v.Status = StatusScheduled
			case *BookingCompleted:
				v.MeetLink = d.MeetLink
				v.SessionFee = d.SessionFee
				v.PartnerPayout = d.PartnerPayout
			case *SessionCompleted:
				v.Status = StatusCompleted
				v.SessionCompletedAt = d.CompletedAt
				v.Rating = d.Rating
			case *PaymentCaptured:
				v.PaymentCaptured = true
			case *Cancelled:
				v.Status = StatusCancelled
				v.CancelReason = d.Reason
			}
			return nil
		},
	}
}

// PartnerStats aggregates booking outcomes per partner. Keyed by the
// partner's email address, which the conference events carry denormalized.
type PartnerStats struct {
	PartnerID         string  `json:"partner_id"`
	BookingsCompleted int     `json:"bookings_completed"`
	SessionsCompleted int     `json:"sessions_completed"`
	Cancellations     int     `json:"cancellations"`
	TotalPayout       float64 `json:"total_payout"`
	RatedSessions     int     `json:"rated_sessions"`
	AverageRating     float64 `json:"average_rating"`
}

// StatsView defines the partner session statistics projection. The running
// average depends on delivery order, which the ordered consumer guarantees.
func StatsView() *fxcore.ViewDef {
	return &fxcore.ViewDef{
		Name:   "partner-session-stats",
		Source: EntityName,
		Init:   func() any { return &PartnerStats{} },
		Keys: func(e *fxcore.Event) []string {
			switch d := e.Data.(type) {
			case *BookingCompleted:
				return []string{d.PartnerID}
			case *SessionCompleted:
				return []string{d.PartnerID}
			case *Cancelled:
				return []string{d.PartnerID}
			}
			return nil
		},
		Apply: func(view any, e *fxcore.Event) error {
			v := view.(*PartnerStats)
			switch d := e.Data.(type) {
			case *BookingCompleted:
				v.PartnerID = d.PartnerID
				v.BookingsCompleted++
				v.TotalPayout += d.PartnerPayout
			case *SessionCompleted:
				v.PartnerID = d.PartnerID
				v.SessionsCompleted++
				if d.Rating > 0 {
					v.AverageRating = (v.AverageRating*float64(v.RatedSessions) + float64(d.Rating)) / float64(v.RatedSessions+1)
					v.RatedSessions++
				}
			case *Cancelled:
				v.PartnerID = d.PartnerID
				v.Cancellations++
			}
			return nil
		},
	}
}
