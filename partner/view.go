package partner

import (
	"time"

	"github.com/fortium/fxcore"
)

// Profile is the directory card read model for a partner, folded from the
// partner's own stream.
type Profile struct {
	EmailAddress string    `json:"email_address"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	PhotoURL     string    `json:"photo_url"`
	Skills       []string  `json:"skills"`
	Engagements  int       `json:"engagements"`
	LastLogin    time.Time `json:"last_login"`
	Active       bool      `json:"active"`
}

// ProfileView defines the partner profile projection.
func ProfileView() *fxcore.ViewDef {
	return &fxcore.ViewDef{
		Name:   "partner-profile",
		Source: EntityName,
		Init:   func() any { return &Profile{} },
		Keys: func(e *fxcore.Event) []string {
			if id := e.EntityID(); id != "" {
				return []string{id}
			}
			return nil
		},
		Apply: func(view any, e *fxcore.Event) error {
			v := view.(*Profile)
			switch d := e.Data.(type) {
			case *Created:
				v.EmailAddress = d.EmailAddress
				v.FullName = d.FirstName + " " + d.LastName
				v.Active = true
			case *LoggedIn:
				v.LastLogin = d.LoginTime
			case *SkillAdded:
				v.Skills = append(v.Skills, d.Skills...)
			case *BioUpdated:
				v.Bio = d.Bio
			case *PhotoURLSet:
				v.PhotoURL = d.PhotoURL
			case *ConferenceAdded:
				v.Engagements++
			}
			return nil
		},
	}
}
