// Package config handles YAML configuration loading, environment variable
// expansion, defaults, and validation for fitagent.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Agent     AgentConfig      `yaml:"agent"`
	Providers []ProviderConfig `yaml:"providers"`
	Tools     ToolsConfig      `yaml:"tools"`
	History   HistoryConfig    `yaml:"history"`
	Gateway   GatewayConfig    `yaml:"gateway"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Log       LogConfig        `yaml:"log"`
}

// AgentConfig tunes the reasoning loop.
type AgentConfig struct {
	MaxSteps       int           `yaml:"max_steps"`
	StreamTimeout  time.Duration `yaml:"stream_timeout"`
	SystemPrompt   string        `yaml:"system_prompt"`
	NextStepPrompt string        `yaml:"next_step_prompt"`
	// FallbackPrompt must contain the {question} placeholder when set.
	FallbackPrompt  string   `yaml:"fallback_prompt"`
	MaxTokens       int      `yaml:"max_tokens"`
	Temperature     *float64 `yaml:"temperature,omitempty"`
	RepeatThreshold int      `yaml:"repeat_threshold"`
}

// ProviderConfig describes one LLM endpoint in the failover chain.
type ProviderConfig struct {
	Name string `yaml:"name"`
	// Kind selects the client implementation. Only "openai" (any
	// OpenAI-compatible API) is built in.
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	// Role is "primary" (default) or "fallback".
	Role   string       `yaml:"role"`
	Health HealthConfig `yaml:"health"`
}

// HealthConfig mirrors provider.HealthConfig.
type HealthConfig struct {
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	MaxFailures    int           `yaml:"max_failures"`
	CheckInterval  time.Duration `yaml:"check_interval"`
}

// ToolsConfig configures builtin tools.
type ToolsConfig struct {
	// Workspace is the directory file tools are confined to.
	Workspace    string `yaml:"workspace"`
	ReadMaxBytes int64  `yaml:"read_max_bytes"`
	// ReportRetention removes saved reports older than this. Zero keeps them.
	ReportRetention time.Duration `yaml:"report_retention"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	// Path is the SQLite file. Empty disables history.
	Path          string        `yaml:"path"`
	Retention     time.Duration `yaml:"retention"`
	PruneSchedule string        `yaml:"prune_schedule"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Bind         string        `yaml:"bind"`
	BearerToken  string        `yaml:"bearer_token"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxConcurrentRuns caps simultaneous agent runs. Zero means unlimited.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`
	// RunsPerMinute caps runs started per client address. Zero means unlimited.
	RunsPerMinute int `yaml:"runs_per_minute"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
