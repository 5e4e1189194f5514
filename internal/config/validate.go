package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/flemzord/fitagent/internal/cron"
	"github.com/flemzord/fitagent/internal/logging"
)

// Validate checks the structural validity of a Config and reports every
// problem found at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateAgent(cfg.Agent)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateHistory(cfg.History)...)
	errs = append(errs, validateGateway(cfg.Gateway)...)

	if cfg.Telemetry.OTLPEndpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Telemetry.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("config: telemetry.otlp_endpoint: %w", err))
		}
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_ratio must be in [0,1], got %v", r))
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	if f := cfg.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", f))
	}

	return errors.Join(errs...)
}

func validateAgent(a AgentConfig) []error {
	var errs []error
	if a.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("config: agent.max_steps must be positive, got %d", a.MaxSteps))
	}
	if a.StreamTimeout < 0 {
		errs = append(errs, errors.New("config: agent.stream_timeout must not be negative"))
	}
	if a.FallbackPrompt != "" && !strings.Contains(a.FallbackPrompt, "{question}") {
		errs = append(errs, errors.New("config: agent.fallback_prompt must contain {question}"))
	}
	if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
		errs = append(errs, fmt.Errorf("config: agent.temperature must be in [0,2], got %v", *a.Temperature))
	}
	return errs
}

func validateProviders(providers []ProviderConfig) []error {
	if len(providers) == 0 {
		return []error{errors.New("config: at least one provider must be configured")}
	}

	var errs []error
	seen := make(map[string]bool, len(providers))
	primary := false
	for i, p := range providers {
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("config: providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true

		if p.Kind != "openai" {
			errs = append(errs, fmt.Errorf("config: providers[%d]: unknown kind %q", i, p.Kind))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("config: providers[%d]: model is required", i))
		}
		if p.BaseURL != "" {
			if _, err := url.ParseRequestURI(p.BaseURL); err != nil {
				errs = append(errs, fmt.Errorf("config: providers[%d]: base_url: %w", i, err))
			}
		}
		switch p.Role {
		case "primary":
			primary = true
		case "fallback":
		default:
			errs = append(errs, fmt.Errorf("config: providers[%d]: role must be primary or fallback, got %q", i, p.Role))
		}
	}
	if !primary {
		errs = append(errs, errors.New("config: at least one provider must have role primary"))
	}
	return errs
}

func validateHistory(h HistoryConfig) []error {
	if h.Path == "" {
		return nil
	}
	var errs []error
	if h.Retention < 0 {
		errs = append(errs, errors.New("config: history.retention must not be negative"))
	}
	if err := cron.ValidateSchedule(h.PruneSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: history.prune_schedule: %w", err))
	}
	return errs
}

func validateGateway(g GatewayConfig) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(g.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.bind: %w", err))
	}
	if g.MaxConcurrentRuns < 0 {
		errs = append(errs, errors.New("config: gateway.max_concurrent_runs must not be negative"))
	}
	if g.RunsPerMinute < 0 {
		errs = append(errs, errors.New("config: gateway.runs_per_minute must not be negative"))
	}
	return errs
}
