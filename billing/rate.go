// Package billing holds the rate value object and the cost calculation used
// by conference aggregates and projections. Everything here is pure: no
// side effects, no I/O, no clock.
package billing

import (
	"errors"
	"math"
	"time"
)

var (
	ErrRateInactive = errors.New("billing: rate is not active")
	ErrRateExpired  = errors.New("billing: rate not valid for the interval")
)

// Rate is the billing schedule in effect for a session. A rate is captured
// on the conference at creation time and is immutable from then on, so the
// cost of a session never changes retroactively when the schedule does.
type Rate struct {
	// PerMinute is the charge per billable minute.
	PerMinute float64 `json:"per_minute" validate:"gte=0"`

	// MinimumCharge is the floor for the total cost.
	MinimumCharge float64 `json:"minimum_charge" validate:"gte=0"`

	// MinimumMinutes is the floor for the session duration.
	MinimumMinutes int `json:"minimum_minutes" validate:"gte=0"`

	// IncrementMinutes is the smallest chargeable unit the duration rounds
	// up to. Zero means one-minute increments.
	IncrementMinutes int `json:"increment_minutes" validate:"gte=0"`

	// EffectiveAt is the start of the validity window.
	EffectiveAt time.Time `json:"effective_at"`

	// ExpiresAt is the end of the validity window. Zero means no expiry.
	ExpiresAt time.Time `json:"expires_at"`

	// Active marks the rate as usable for new bookings.
	Active bool `json:"active"`
}

// ValidFor reports whether the rate covers the whole interval: effective by
// start and not expired before end.
func (r Rate) ValidFor(start, end time.Time) error {
	if !r.Active {
		return ErrRateInactive
	}
	if !r.EffectiveAt.IsZero() && start.Before(r.EffectiveAt) {
		return ErrRateExpired
	}
	if !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(end) {
		return ErrRateExpired
	}
	return nil
}

// CalculateCost computes the billable cost of the interval:
// the duration in minutes, rounded up, is raised to the minimum duration,
// rounded up to the billing increment, multiplied by the per-minute rate,
// and floored at the minimum charge.
func (r Rate) CalculateCost(start, end time.Time) float64 {
	minutes := int(math.Ceil(end.Sub(start).Minutes()))
	if minutes < 0 {
		minutes = 0
	}

	if minutes < r.MinimumMinutes {
		minutes = r.MinimumMinutes
	}

	inc := r.IncrementMinutes
	if inc <= 0 {
		inc = 1
	}
	billable := (minutes + inc - 1) / inc * inc

	cost := float64(billable) * r.PerMinute
	if cost < r.MinimumCharge {
		cost = r.MinimumCharge
	}
	return cost
}
