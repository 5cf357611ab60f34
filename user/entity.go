package user

import (
	"context"
	"log/slog"

	"github.com/fortium/fxcore"
	"github.com/fortium/fxcore/types"
)

// EntityName is the user stream name.
const EntityName = "users"

// Types returns the registry fragment for the user commands and events.
func Types() map[string]*types.Type {
	return map[string]*types.Type{
		"create-user":            {Init: func() any { return &Create{} }},
		"update-user-profile":    {Init: func() any { return &UpdateProfile{} }},
		"log-in-user":            {Init: func() any { return &LogIn{} }},
		"log-out-user":           {Init: func() any { return &LogOut{} }},
		"add-conference-to-user": {Init: func() any { return &AddConference{} }},

		"user-created":             {Init: func() any { return &Created{} }},
		"user-profile-updated":     {Init: func() any { return &ProfileUpdated{} }},
		"user-logged-in":           {Init: func() any { return &LoggedIn{} }},
		"user-logged-out":          {Init: func() any { return &LoggedOut{} }},
		"conference-added-to-user": {Init: func() any { return &ConferenceAdded{} }},
	}
}

// Entity wires the user aggregate.
func Entity(log *slog.Logger) *fxcore.Entity {
	log = log.With("aggregate", EntityName)

	return &fxcore.Entity{
		Name: EntityName,
		Init: func() fxcore.State { return &User{} },
		Creates: []string{
			"create-user",
		},
		Events: []string{
			"user-created",
			"user-profile-updated",
			"user-logged-in",
			"user-logged-out",
			"conference-added-to-user",
		},
		Commands: map[string]fxcore.HandlerFunc{
			"create-user":            create(log),
			"update-user-profile":    updateProfile(log),
			"log-in-user":            logIn(log),
			"log-out-user":           logOut(log),
			"add-conference-to-user": addConference(log),
		},
	}
}

func create(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		u := state.(*User)
		c := cmd.Data.(*Create)

		if u.Active {
			log.Info("user already active, ignoring duplicate create", "email", c.EmailAddress)
			return fxcore.NoEvents()
		}

		log.Info("creating user", "email", c.EmailAddress)
		return fxcore.Emit(&Created{
			EmailAddress: c.EmailAddress,
			FirstName:    c.FirstName,
			LastName:     c.LastName,
		})
	}
}

func updateProfile(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*UpdateProfile)

		if c.FirstName == "" && c.LastName == "" && c.PhoneNumber == "" && c.PhotoURL == "" {
			return fxcore.NoEvents()
		}

		log.Debug("updating profile", "email", c.EmailAddress)
		return fxcore.Emit(&ProfileUpdated{
			EmailAddress: c.EmailAddress,
			FirstName:    c.FirstName,
			LastName:     c.LastName,
			PhoneNumber:  c.PhoneNumber,
			PhotoURL:     c.PhotoURL,
		})
	}
}

func logIn(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*LogIn)
		log.Debug("user logged in", "email", c.EmailAddress)
		return fxcore.Emit(&LoggedIn{EmailAddress: c.EmailAddress, LoginTime: c.LoginTime})
	}
}

func logOut(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		c := cmd.Data.(*LogOut)
		log.Debug("user logged out", "email", c.EmailAddress)
		return fxcore.Emit(&LoggedOut{EmailAddress: c.EmailAddress, LogoutTime: c.LogoutTime})
	}
}

func addConference(log *slog.Logger) fxcore.HandlerFunc {
	return func(ctx context.Context, state fxcore.State, cmd *fxcore.Command) ([]*fxcore.Event, error) {
		u := state.(*User)
		c := cmd.Data.(*AddConference)

		if u.HasConference(c.ConferenceID) {
			log.Debug("conference already attached", "email", c.EmailAddress, "conference", c.ConferenceID)
			return fxcore.NoEvents()
		}

		log.Info("attaching conference", "email", c.EmailAddress, "conference", c.ConferenceID)
		return fxcore.Emit(&ConferenceAdded{EmailAddress: c.EmailAddress, ConferenceID: c.ConferenceID})
	}
}
