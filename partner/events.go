package partner

import "time"

// Created records that a partner joined the platform.
type Created struct {
	EmailAddress string `json:"email_address"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type LoggedIn struct {
	EmailAddress string    `json:"email_address"`
	LoginTime    time.Time `json:"login_time"`
}

type LoggedOut struct {
	EmailAddress string    `json:"email_address"`
	LogoutTime   time.Time `json:"logout_time"`
}

type SkillAdded struct {
	EmailAddress string   `json:"email_address"`
	Skills       []string `json:"skills"`
}

type BioUpdated struct {
	EmailAddress string `json:"email_address"`
	Bio          string `json:"bio"`
}

type PhotoURLSet struct {
	EmailAddress string `json:"email_address"`
	PhotoURL     string `json:"photo_url"`
}

type PrimaryPhoneSet struct {
	EmailAddress string `json:"email_address"`
	PrimaryPhone string `json:"primary_phone"`
}

type WorkExperienceAdded struct {
	EmailAddress string      `json:"email_address"`
	WorkHistory  WorkHistory `json:"work_history"`
}

// ConferenceAdded records a conference id back-reference on the partner.
// The conference itself lives in its own stream; only the id is stored.
type ConferenceAdded struct {
	EmailAddress string `json:"email_address"`
	ConferenceID string `json:"conference_id"`
}
