package conference

import (
	"context"
	"log/slog"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/partner"
	"github.com/fortium/fxcore/user"
)

// FanoutReaction links every new conference back to the partner and the
// user that booked it. Both receiving handlers treat a repeated link as a
// no-op, so redelivery is safe.
func FanoutReaction(log *slog.Logger) *fxcore.Reaction {
	log = log.With("reaction", "conference-fanout")

	return &fxcore.Reaction{
		Name:   "conference-fanout",
		Stream: EntityName,
		Handle: func(ctx context.Context, env *fxcore.Envelope) ([]fxcore.Derived, error) {
			d, ok := env.Event.Data.(*Created)
			if !ok {
				return nil, nil
			}

			if env.NumDelivered > 1 {
				log.Debug("redelivery", "conference", d.ConferenceID, "attempt", env.NumDelivered)
			}

			return []fxcore.Derived{
				{
					Entity: partner.EntityName,
					ID:     d.PartnerID,
					Data: &partner.AddConference{
						EmailAddress: d.PartnerID,
						ConferenceID: d.ConferenceID,
					},
				},
				{
					Entity: user.EntityName,
					ID:     d.UserID,
					Data: &user.AddConference{
						EmailAddress: d.UserID,
						ConferenceID: d.ConferenceID,
					},
				},
			}, nil
		},
	}
}
