package user

import "time"

// Commands.

// Create registers a user. Re-creating an already active user is a benign
// no-op.
type Create struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
}

// UpdateProfile changes profile fields. Empty fields are left untouched.
type UpdateProfile struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,url"`
}

type LogIn struct {
	EmailAddress string    `json:"email_address" validate:"required,email"`
	LoginTime    time.Time `json:"login_time" validate:"required"`
}

type LogOut struct {
	EmailAddress string    `json:"email_address" validate:"required,email"`
	LogoutTime   time.Time `json:"logout_time" validate:"required"`
}

// AddConference attaches a conference id to the user. Adding the same id
// twice is a no-op, which keeps at-least-once choreography harmless.
type AddConference struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	ConferenceID string `json:"conference_id" validate:"required,uuid4"`
}

// Events.

type Created struct {
	EmailAddress string `json:"email_address"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type ProfileUpdated struct {
	EmailAddress string `json:"email_address"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
	PhotoURL     string `json:"photo_url"`
}

type LoggedIn struct {
	EmailAddress string    `json:"email_address"`
	LoginTime    time.Time `json:"login_time"`
}

type LoggedOut struct {
	EmailAddress string    `json:"email_address"`
	LogoutTime   time.Time `json:"logout_time"`
}

type ConferenceAdded struct {
	EmailAddress string `json:"email_address"`
	ConferenceID string `json:"conference_id"`
}
