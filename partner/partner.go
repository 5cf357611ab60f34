// Package partner models a consulting partner as an event-sourced
// aggregate: the profile, skills, work history, login activity, and the ids
// of the video conferences the partner is booked for.
package partner

import (
	"fmt"
	"slices"
	"time"

	"github.com/fortium/fxcore"
)

// WorkHistory is one entry of a partner's prior experience.
type WorkHistory struct {
	Company     string    `json:"company" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Partner is the aggregate state, rebuilt by folding the partner's event
// stream. It is never persisted directly.
type Partner struct {
	EmailAddress  string
	FirstName     string
	LastName      string
	PrimaryPhone  string
	PhotoURL      string
	Bio           string
	Skills        []string
	WorkHistories []WorkHistory
	Conferences   []string

	Active     bool
	LoggedIn   bool
	LastLogin  time.Time
	LastLogout time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasConference reports whether the conference id is already attached.
func (p *Partner) HasConference(id string) bool {
	return slices.Contains(p.Conferences, id)
}

// Evolve folds one event into the state. The update time always comes from
// the event, never from the wall clock, so a replay reproduces the state
// byte for byte.
func (p *Partner) Evolve(e *fxcore.Event) error {
	switch d := e.Data.(type) {
	case *Created:
		p.EmailAddress = d.EmailAddress
		p.FirstName = d.FirstName
		p.LastName = d.LastName
		p.Active = true
		p.CreatedAt = e.Time
	case *LoggedIn:
		p.LoggedIn = true
		p.LastLogin = d.LoginTime
	case *LoggedOut:
		p.LoggedIn = false
		p.LastLogout = d.LogoutTime
	case *SkillAdded:
		p.Skills = append(p.Skills, d.Skills...)
	case *BioUpdated:
		p.Bio = d.Bio
	case *PhotoURLSet:
		p.PhotoURL = d.PhotoURL
	case *PrimaryPhoneSet:
		p.PrimaryPhone = d.PrimaryPhone
	case *WorkExperienceAdded:
		p.WorkHistories = append(p.WorkHistories, d.WorkHistory)
	case *ConferenceAdded:
		if !p.HasConference(d.ConferenceID) {
			p.Conferences = append(p.Conferences, d.ConferenceID)
		}
	default:
		return fmt.Errorf("partner: unknown event type %T", e.Data)
	}

	p.UpdatedAt = e.Time
	return nil
}

// Snapshot returns an independent copy of the partner for read-only
// queries.
func (p *Partner) Snapshot() any {
	return &Snapshot{
		EmailAddress:  p.EmailAddress,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PrimaryPhone:  p.PrimaryPhone,
		PhotoURL:      p.PhotoURL,
		Bio:           p.Bio,
		Skills:        slices.Clone(p.Skills),
		WorkHistories: slices.Clone(p.WorkHistories),
		Conferences:   slices.Clone(p.Conferences),
		Active:        p.Active,
		LoggedIn:      p.LoggedIn,
		LastLogin:     p.LastLogin,
		LastLogout:    p.LastLogout,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Snapshot is the externally visible copy of a partner's state.
type Snapshot struct {
	EmailAddress  string        `json:"email_address"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PrimaryPhone  string        `json:"primary_phone"`
	PhotoURL      string        `json:"photo_url"`
	Bio           string        `json:"bio"`
	Skills        []string      `json:"skills"`
	WorkHistories []WorkHistory `json:"work_histories"`
	Conferences   []string      `json:"conferences"`
	Active        bool          `json:"active"`
	LoggedIn      bool          `json:"logged_in"`
	LastLogin     time.Time     `json:"last_login"`
	LastLogout    time.Time     `json:"last_logout"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FullName returns the display name.
func (s *Snapshot) FullName() string {
	return s.FirstName + " " + s.LastName
}
