package fxcore

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the tunables of the runtime. Values load from the
// environment with LoadConfig, or construct one directly.
type Config struct {
	// URL of the NATS server, for callers that dial here.
	URL string `env:"FX_NATS_URL" envDefault:"nats://127.0.0.1:4222"`

	// StreamReplicas for newly created entity streams.
	StreamReplicas int `env:"FX_STREAM_REPLICAS" envDefault:"1"`

	// MemoryStorage stores entity streams in memory rather than on disk.
	MemoryStorage bool `env:"FX_MEMORY_STORAGE" envDefault:"false"`

	// MaxConflictRetries bounds how many times an actor reloads and retries
	// a command after an optimistic append conflict before surfacing
	// ErrSequenceConflict.
	MaxConflictRetries uint64 `env:"FX_MAX_CONFLICT_RETRIES" envDefault:"3"`

	// CommandTimeout bounds a single command turn, including the event log
	// append and any collaborator call a handler makes.
	CommandTimeout time.Duration `env:"FX_COMMAND_TIMEOUT" envDefault:"5s"`

	// MailboxSize is the per-actor queue depth. Submits block once full.
	MailboxSize int `env:"FX_MAILBOX_SIZE" envDefault:"64"`

	// AckWait is how long the choreography layer waits for a reaction to
	// finish before the envelope is redelivered.
	AckWait time.Duration `env:"FX_ACK_WAIT" envDefault:"5s"`

	// MaxDeliver bounds envelope redeliveries.
	MaxDeliver int `env:"FX_MAX_DELIVER" envDefault:"10"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		URL:                "nats://127.0.0.1:4222",
		StreamReplicas:     1,
		MaxConflictRetries: 3,
		CommandTimeout:     5 * time.Second,
		MailboxSize:        64,
		AckWait:            5 * time.Second,
		MaxDeliver:         10,
	}
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, err
	}
	return c, nil
}
