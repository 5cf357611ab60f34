package fxcore

import (
	"context"
	"errors"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"
)

var entityNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// HandlerFunc decides the outcome of a command against the current state.
// It returns the ordered list of events that record the decision, or a
// ValidationError if the command violates an invariant. Zero events means
// the command is a benign no-op. Handlers must not mutate the state; the
// actor applies the returned events itself.
type HandlerFunc func(ctx context.Context, state State, cmd *Command) ([]*Event, error)

// Entity describes one aggregate type: its stream name, how to initialize
// empty state, which commands it accepts, and which events it may emit.
// All names refer to entries in the type registry.
type Entity struct {
	// Name of the entity type. Doubles as the stream name.
	Name string

	// Init returns a new empty state value.
	Init func() State

	// Commands maps a registered command type name to its handler.
	Commands map[string]HandlerFunc

	// Creates lists the command names that may address an entity with no
	// stream yet. Every other command is rejected while uninitialized.
	Creates []string

	// Events lists the event type names this entity may emit. The empty
	// state must fold every one of them.
	Events []string
}

func (e *Entity) creates(commandType string) bool {
	return slices.Contains(e.Creates, commandType)
}

// Dispatcher resolves, per entity type, the handler function for an inbound
// command. All mappings are validated once at construction, so a missing
// handler is a startup failure, never a per-request one.
type Dispatcher struct {
	entities map[string]*Entity
	validate *validator.Validate
}

// NewDispatcher validates and indexes the entity descriptors against the
// core's type registry. Any inconsistency is reported as a
// ConfigurationError before the system serves traffic.
func NewDispatcher(core *Core, entities ...*Entity) (*Dispatcher, error) {
	if core.types == nil {
		return nil, configf("dispatcher", "a type registry is required")
	}

	d := &Dispatcher{
		entities: make(map[string]*Entity),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, e := range entities {
		if err := d.check(core, e); err != nil {
			return nil, err
		}
		d.entities[e.Name] = e
	}

	return d, nil
}

func (d *Dispatcher) check(core *Core, e *Entity) error {
	if !entityNameRegex.MatchString(e.Name) {
		return configf("entity", "invalid name %q", e.Name)
	}

	if _, ok := d.entities[e.Name]; ok {
		return configf(e.Name, "registered twice")
	}

	if e.Init == nil {
		return configf(e.Name, "init func is nil")
	}
	if e.Init() == nil {
		return configf(e.Name, "init func returns nil")
	}

	if len(e.Commands) == 0 {
		return configf(e.Name, "no command handlers")
	}

	for name, h := range e.Commands {
		if h == nil {
			return configf(e.Name, "nil handler for command %q", name)
		}
		if _, err := core.types.Init(name); err != nil {
			return configf(e.Name, "command %q not in type registry", name)
		}
	}

	if len(e.Creates) == 0 {
		return configf(e.Name, "no creation command declared")
	}
	for _, name := range e.Creates {
		if _, ok := e.Commands[name]; !ok {
			return configf(e.Name, "creation command %q has no handler", name)
		}
	}

	if len(e.Events) == 0 {
		return configf(e.Name, "no events declared")
	}
	for _, name := range e.Events {
		if _, err := core.types.Init(name); err != nil {
			return configf(e.Name, "event %q not in type registry", name)
		}
	}

	return nil
}

// Entity returns the descriptor for a registered entity type.
func (d *Dispatcher) Entity(name string) (*Entity, error) {
	e, ok := d.entities[name]
	if !ok {
		return nil, configf("dispatcher", "unknown entity type %q", name)
	}
	return e, nil
}

// Resolve returns the handler for the (entity type, command type) pair.
func (d *Dispatcher) Resolve(entity, commandType string) (HandlerFunc, error) {
	e, err := d.Entity(entity)
	if err != nil {
		return nil, err
	}

	h, ok := e.Commands[commandType]
	if !ok {
		return nil, configf(entity, "no handler for command %q", commandType)
	}
	return h, nil
}

// ValidateCommand checks the command payload against its struct tag rules
// and, if implemented, its own Validate method. A failure is reported as a
// ValidationError and nothing is dispatched.
func (d *Dispatcher) ValidateCommand(entity, id string, cmd *Command) error {
	if err := d.validate.Struct(cmd.Data); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return rejectf(entity, id, cmd.Type, "field %s failed on %q", f.Field(), f.Tag())
		}
		return rejectf(entity, id, cmd.Type, "%s", err)
	}

	if v, ok := cmd.Data.(Validator); ok {
		if err := v.Validate(); err != nil {
			return rejectf(entity, id, cmd.Type, "%s", err)
		}
	}

	return nil
}

// NoEvents is a convenience for handlers that decide a command is a benign
// no-op, such as re-creating an already active entity.
func NoEvents() ([]*Event, error) {
	return nil, nil
}

// Emit is a convenience for handlers returning a sequence of event payloads.
func Emit(data ...any) ([]*Event, error) {
	events := make([]*Event, len(data))
	for i, d := range data {
		events[i] = &Event{Data: d}
	}
	return events, nil
}
