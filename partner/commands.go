package partner

import "time"

// Create enrolls a partner. Re-creating an already active partner is a
// benign no-op.
type Create struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
}

type LogIn struct {
	EmailAddress string    `json:"email_address" validate:"required,email"`
	LoginTime    time.Time `json:"login_time" validate:"required"`
}

type LogOut struct {
	EmailAddress string    `json:"email_address" validate:"required,email"`
	LogoutTime   time.Time `json:"logout_time" validate:"required"`
}

type AddSkill struct {
	EmailAddress string   `json:"email_address" validate:"required,email"`
	Skills       []string `json:"skills" validate:"required,min=1,dive,required"`
}

type UpdateBio struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	Bio          string `json:"bio" validate:"required"`
}

type SetPhotoURL struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	PhotoURL     string `json:"photo_url" validate:"required,url"`
}

type SetPrimaryPhone struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	PrimaryPhone string `json:"primary_phone" validate:"required"`
}

type AddWorkExperience struct {
	EmailAddress string      `json:"email_address" validate:"required,email"`
	WorkHistory  WorkHistory `json:"work_history" validate:"required"`
}

// AddConference attaches a conference id to the partner. Adding the same id
// twice is a no-op, which keeps at-least-once choreography harmless.
type AddConference struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	ConferenceID string `json:"conference_id" validate:"required,uuid4"`
}
