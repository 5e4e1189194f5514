package agent

import "time"

// Default values for Config.
const (
	DefaultMaxSteps      = 10
	DefaultStreamTimeout = 10 * time.Minute
	DefaultEventBuffer   = 16
)

// Config controls the behavior of the agent loop.
type Config struct {
	// MaxSteps is the step budget of one run.
	MaxSteps int

	// StreamTimeout bounds the wall-clock duration of a streaming run.
	// Multi-minute tool chains must fit inside it.
	StreamTimeout time.Duration

	// EventBuffer is the capacity of the streaming event channel.
	EventBuffer int
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = DefaultStreamTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	return c
}
