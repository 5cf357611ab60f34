package billing

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

var sessionStart = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		Name    string
		Rate    Rate
		Minutes int
		Cost    float64
	}{
		{
			"plain per-minute",
			Rate{PerMinute: 2.50, IncrementMinutes: 1},
			30,
			75.00,
		},
		{
			"minimum charge wins",
			Rate{PerMinute: 2.50, MinimumCharge: 50, IncrementMinutes: 1},
			10,
			50.00,
		},
		{
			"rounds up to increment",
			Rate{PerMinute: 2.50, IncrementMinutes: 5},
			7,
			25.00,
		},
		{
			"minimum minutes applied",
			Rate{PerMinute: 2.50, MinimumMinutes: 15},
			5,
			37.50,
		},
		{
			"increment result ties with minimum charge",
			Rate{PerMinute: 2.50, MinimumCharge: 50, MinimumMinutes: 15, IncrementMinutes: 5},
			17,
			50.00,
		},
		{
			"zero increment defaults to one minute",
			Rate{PerMinute: 1.00},
			12,
			12.00,
		},
		{
			"zero duration still pays the minimum",
			Rate{PerMinute: 2.50, MinimumCharge: 25},
			0,
			25.00,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			is := is.New(t)
			end := sessionStart.Add(time.Duration(test.Minutes) * time.Minute)
			is.Equal(test.Rate.CalculateCost(sessionStart, end), test.Cost)
		})
	}
}

func TestCalculateCostPartialMinuteRoundsUp(t *testing.T) {
	is := is.New(t)

	rate := Rate{PerMinute: 2.50, IncrementMinutes: 1}
	end := sessionStart.Add(30*time.Minute + 10*time.Second)
	is.Equal(rate.CalculateCost(sessionStart, end), 77.50) // 31 chargeable minutes
}

func TestValidFor(t *testing.T) {
	is := is.New(t)

	end := sessionStart.Add(time.Hour)

	rate := Rate{Active: true}
	is.NoErr(rate.ValidFor(sessionStart, end))

	rate = Rate{Active: false}
	is.True(rate.ValidFor(sessionStart, end) == ErrRateInactive)

	rate = Rate{Active: true, EffectiveAt: sessionStart.Add(time.Minute)}
	is.True(rate.ValidFor(sessionStart, end) == ErrRateExpired)

	rate = Rate{Active: true, ExpiresAt: sessionStart.Add(30 * time.Minute)}
	is.True(rate.ValidFor(sessionStart, end) == ErrRateExpired)

	rate = Rate{Active: true, EffectiveAt: sessionStart, ExpiresAt: end}
	is.NoErr(rate.ValidFor(sessionStart, end))
}
