package partner

import (
	"context"
	"log/slog"
	"slices"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/types"
)

// EntityName is the partner stream name.
const EntityName = "partners"

// Types returns the registry fragment for the partner commands, events,
// and views.
func Types() map[string]*types.Type {
	return map[string]*types.Type{
		"create-partner":              {Init: func() any { return &Create{} }},
		"log-in-partner":              {Init: func() any { return &LogIn{} }},
		"log-out-partner":             {Init: func() any { return &LogOut{} }},
		"add-partner-skill":           {Init: func() any { return &AddSkill{} }},
		"update-partner-bio":          {Init: func() any { return &UpdateBio{} }},
		"set-partner-photo-url":       {Init: func() any { return &SetPhotoURL{} }},
		"set-partner-primary-phone":   {Init: func() any { return &SetPrimaryPhone{} }},
		"add-partner-work-experience": {Init: func() any { return &AddWorkExperience{} }},
		"add-conference-to-partner":   {Init: func() any { return &AddConference{} }},

		"partner-created":               {Init: func() any { return &Created{} }},
		"partner-logged-in":             {Init: func() any { return &LoggedIn{} }},
		"partner-logged-out":            {Init: func() any { return &LoggedOut{} }},
		"partner-skill-added":           {Init: func() any { return &SkillAdded{} }},
		"partner-bio-updated":           {Init: func() any { return &BioUpdated{} }},
		"partner-photo-url-set":         {Init: func() any { return &PhotoURLSet{} }},
		"partner-primary-phone-set":     {Init: func() any { return &PrimaryPhoneSet{} }},
		"partner-work-experience-added": {Init: func() any { return &WorkExperienceAdded{} }},
		"conference-added-to-partner":   {Init: func() any { return &ConferenceAdded{} }},

		"partner-profile": {Init: func() any { return &Profile{} }},
	}
}

// Entity wires the partner aggregate: empty state, command handlers, and
// the event names its state folds.
func Entity(log *slog.Logger) *fxcore.Entity {
	log = log.With("aggregate", EntityName)

	return &fxcore.Entity{
		Name: EntityName,
		Init: func() fxcore.State { return &Partner{} },
		Creates: []string{
			"create-partner",
		},
		Events: []string{
			"partner-created",
			"partner-logged-in",
			"partner-logged-out",
			"partner-skill-added",
			"partner-bio-updated",
			"partner-photo-url-set",
			"partner-primary-phone-set",
			"partner-work-experience-added",
			"conference-added-to-partner",
		},
		Commands: map[string]fxcore.HandlerFunc{
			"create-partner":              create(log),
			"log-in-partner":              logIn(log),
			"log-out-partner":             logOut(log),
			"add-partner-skill":           addSkill(log),
			"update-partner-bio":          updateBio(log),
			"set-partner-photo-url":       setPhotoURL(log),
			"set-partner-primary-phone":   setPrimaryPhone(log),
			"add-partner-work-experience": addWorkExperience(log),
			"add-conference-to-partner":   addConference(log),
		},
	}
}

func create(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		p := state.(*Partner)
		c := cmd.Data.(*Create)

		if p.Active {
			log.Info("partner already active, ignoring duplicate create", "email", c.EmailAddress)
			return fxcore.NoEvents()
		}

		log.Info("creating partner", "email", c.EmailAddress)
		return fxcore.Emit(&Created{
			EmailAddress: c.EmailAddress,
			FirstName:    c.FirstName,
			LastName:     c.LastName,
		})
	}
}

func logIn(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*LogIn)
		log.Debug("partner logged in", "email", c.EmailAddress)
		return fxcore.Emit(&LoggedIn{EmailAddress: c.EmailAddress, LoginTime: c.LoginTime})
	}
}

func logOut(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*LogOut)
		log.Debug("partner logged out", "email", c.EmailAddress)
		return fxcore.Emit(&LoggedOut{EmailAddress: c.EmailAddress, LogoutTime: c.LogoutTime})
	}
}

func addSkill(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		p := state.(*Partner)
		c := cmd.Data.(*AddSkill)

		// Only record skills not already present.
		var fresh []string
		for _, s := range c.Skills {
			if !slices.Contains(p.Skills, s) && !slices.Contains(fresh, s) {
				fresh = append(fresh, s)
			}
		}
		if len(fresh) == 0 {
			return fxcore.NoEvents()
		}

		log.Debug("adding skills", "email", c.EmailAddress, "skills", fresh)
		return fxcore.Emit(&SkillAdded{EmailAddress: c.EmailAddress, Skills: fresh})
	}
}

func updateBio(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*UpdateBio)
		log.Debug("updating bio", "email", c.EmailAddress)
		return fxcore.Emit(&BioUpdated{EmailAddress: c.EmailAddress, Bio: c.Bio})
	}
}

func setPhotoURL(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*SetPhotoURL)
		log.Debug("setting photo url", "email", c.EmailAddress)
		return fxcore.Emit(&PhotoURLSet{EmailAddress: c.EmailAddress, PhotoURL: c.PhotoURL})
	}
}

func setPrimaryPhone(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*SetPrimaryPhone)
		log.Debug("setting primary phone", "email", c.EmailAddress)
		return fxcore.Emit(&PrimaryPhoneSet{EmailAddress: c.EmailAddress, PrimaryPhone: c.PrimaryPhone})
	}
}

func addWorkExperience(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*AddWorkExperience)
		log.Debug("adding work experience", "email", c.EmailAddress, "company", c.WorkHistory.Company)
		return fxcore.Emit(&WorkExperienceAdded{EmailAddress: c.EmailAddress, WorkHistory: c.WorkHistory})
	}
}

func addConference(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		p := state.(*Partner)
		c := cmd.Data.(*AddConference)

		if p.HasConference(c.ConferenceID) {
			log.Debug("conference already attached", "email", c.EmailAddress, "conference", c.ConferenceID)
			return fxcore.NoEvents()
		}

		log.Info("attaching conference", "email", c.EmailAddress, "conference", c.ConferenceID)
		return fxcore.Emit(&ConferenceAdded{EmailAddress: c.EmailAddress, ConferenceID: c.ConferenceID})
	}
}
