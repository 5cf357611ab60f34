// Package user models a client of the platform as an event-sourced
// aggregate: the profile and the ids of the video conferences the user has
// booked.
package user

import (
	"fmt"
	"slices"
	"time"

	"github.com/fortium/fxcore"
)

// User is the aggregate state, rebuilt by folding the user's event stream.
type User struct {
	EmailAddress string
	FirstName    string
	LastName     string
	PhoneNumber  string
	PhotoURL     string
	Conferences  []string

	Active     bool
	LoggedIn   bool
	LastLogin  time.Time
	LastLogout time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasConference reports whether the conference id is already attached.
func (u *User) HasConference(id string) bool {
	return slices.Contains(u.Conferences, id)
}

func (u *User) Evolve(e *fxcore.Event) error {
	switch d := e.Data.(type) {
	case *Created:
		u.EmailAddress = d.EmailAddress
		u.FirstName = d.FirstName
		u.LastName = d.LastName
		u.Active = true
		u.CreatedAt = e.Time
	case *ProfileUpdated:
		if d.FirstName != "" {
			u.FirstName = d.FirstName
		}
		if d.LastName != "" {
			u.LastName = d.LastName
		}
		if d.PhoneNumber != "" {
			u.PhoneNumber = d.PhoneNumber
		}
		if d.PhotoURL != "" {
			u.PhotoURL = d.PhotoURL
		}
	case *LoggedIn:
		u.LoggedIn = true
		u.LastLogin = d.LoginTime
	case *LoggedOut:
		u.LoggedIn = false
		u.LastLogout = d.LogoutTime
	case *ConferenceAdded:
		if !u.HasConference(d.ConferenceID) {
			u.Conferences = append(u.Conferences, d.ConferenceID)
		}
	default:
		return fmt.Errorf("user: unknown event type %T", e.Data)
	}

	u.UpdatedAt = e.Time
	return nil
}

func (u *User) Snapshot() any {
	return &Snapshot{
		EmailAddress: u.EmailAddress,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PhoneNumber:  u.PhoneNumber,
		PhotoURL:     u.PhotoURL,
		Conferences:  slices.Clone(u.Conferences),
		Active:       u.Active,
		LoggedIn:     u.LoggedIn,
		LastLogin:    u.LastLogin,
		LastLogout:   u.LastLogout,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Snapshot is the externally visible copy of a user's state.
type Snapshot struct {
	EmailAddress string    `json:"email_address"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	PhotoURL     string    `json:"photo_url"`
	Conferences  []string  `json:"conferences"`
	Active       bool      `json:"active"`
	LoggedIn     bool      `json:"logged_in"`
	LastLogin    time.Time `json:"last_login"`
	LastLogout   time.Time `json:"last_logout"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
