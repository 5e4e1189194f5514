package config

import "time"

// Defaults applied by ApplyDefaults.
const (
	DefaultMaxSteps      = 10
	DefaultStreamTimeout = 10 * time.Minute
	DefaultBind          = "127.0.0.1:8080"
	DefaultRetention     = 30 * 24 * time.Hour
	DefaultPruneSchedule = "0 3 * * *"
)

// ApplyDefaults fills zero values with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.Agent.MaxSteps == 0 {
		cfg.Agent.MaxSteps = DefaultMaxSteps
	}
	if cfg.Agent.StreamTimeout == 0 {
		cfg.Agent.StreamTimeout = DefaultStreamTimeout
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Kind == "" {
			p.Kind = "openai"
		}
		if p.Role == "" {
			p.Role = "primary"
		}
		if p.Name == "" {
			p.Name = p.Kind + "-" + p.Model
		}
	}
	if cfg.Tools.Workspace == "" {
		cfg.Tools.Workspace = "."
	}
	if cfg.History.Path != "" {
		if cfg.History.Retention == 0 {
			cfg.History.Retention = DefaultRetention
		}
		if cfg.History.PruneSchedule == "" {
			cfg.History.PruneSchedule = DefaultPruneSchedule
		}
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = DefaultBind
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "fitagent"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Secrets returns every credential in cfg, for log redaction.
func (c *Config) Secrets() []string {
	var out []string
	for _, p := range c.Providers {
		if p.APIKey != "" {
			out = append(out, p.APIKey)
		}
	}
	if c.Gateway.BearerToken != "" {
		out = append(out, c.Gateway.BearerToken)
	}
	return out
}
