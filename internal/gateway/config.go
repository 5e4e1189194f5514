package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind string
	// BearerToken protects the /v1 API. Empty leaves it open.
	BearerToken     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxConcurrentRuns caps simultaneous agent runs. Zero means unlimited.
	MaxConcurrentRuns int
	// RunsPerMinute caps runs started per client address. Zero means unlimited.
	RunsPerMinute int
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}
