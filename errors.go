package fxcore

import (
	"errors"
	"fmt"
)

var (
	// ErrSequenceConflict indicates an optimistic append lost a race with
	// another writer. The actor reloads and retries a bounded number of
	// times before surfacing this to the caller.
	ErrSequenceConflict = errors.New("fxcore: sequence conflict")

	// ErrEventIDRequired indicates an event without an id was appended
	// without an id generator configured.
	ErrEventIDRequired = errors.New("fxcore: event id required")

	// ErrEventTypeRequired indicates an event type name could not be
	// derived for an append.
	ErrEventTypeRequired = errors.New("fxcore: event type required")

	// ErrValidation is the base error for command rejections. Nothing is
	// persisted when a command fails validation.
	ErrValidation = errors.New("fxcore: command rejected")

	// ErrNotActive indicates a non-creation command was submitted for an
	// entity that has no stream yet.
	ErrNotActive = errors.New("fxcore: entity not active")

	// ErrEntityNotFound indicates a query for an entity that has no stream.
	ErrEntityNotFound = errors.New("fxcore: entity not found")

	// ErrViewNotFound indicates a projection view does not exist for the
	// requested key.
	ErrViewNotFound = errors.New("fxcore: view not found")

	// ErrConfiguration is the base error for registration-time mistakes,
	// such as a command with no handler. These are programming errors and
	// must surface at startup, never at request time.
	ErrConfiguration = errors.New("fxcore: invalid configuration")

	// ErrRuntimeClosed indicates a submit or query after Close.
	ErrRuntimeClosed = errors.New("fxcore: runtime closed")
)

// ValidationError reports why a command was rejected. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Entity  string
	ID      string
	Command string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fxcore: %s/%s: %s rejected: %s", e.Entity, e.ID, e.Command, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Reject builds the ValidationError a command handler returns when the
// command violates a domain invariant.
func Reject(entity, id, command, reason string) error {
	return &ValidationError{
		Entity:  entity,
		ID:      id,
		Command: command,
		Reason:  reason,
	}
}

func rejectf(entity, id, command, format string, args ...any) error {
	return &ValidationError{
		Entity:  entity,
		ID:      id,
		Command: command,
		Reason:  fmt.Sprintf(format, args...),
	}
}

// ConfigurationError reports an invalid entity, reaction, or view
// registration. It matches ErrConfiguration under errors.Is.
type ConfigurationError struct {
	Scope  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("fxcore: %s: %s", e.Scope, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configf(scope, format string, args ...any) error {
	return &ConfigurationError{
		Scope:  scope,
		Reason: fmt.Sprintf(format, args...),
	}
}
