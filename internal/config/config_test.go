package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `
version: "1"
agent:
  max_steps: 6
  stream_timeout: 2m
  system_prompt: "You are a fitness coach."
providers:
  - name: main
    model: gpt-4o-mini
    api_key: ${FITAGENT_TEST_KEY:-sk-default}
  - name: backup
    model: llama3
    base_url: http://localhost:11434/v1
    role: fallback
history:
  path: /tmp/fitagent/history.db
gateway:
  bind: ":9090"
  bearer_token: ${FITAGENT_TEST_TOKEN}
`

func TestParse_Sample(t *testing.T) {
	t.Setenv("FITAGENT_TEST_TOKEN", "tok-123456")

	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Agent.MaxSteps != 6 || cfg.Agent.StreamTimeout != 2*time.Minute {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Providers[0].APIKey != "sk-default" {
		t.Errorf("api key = %q, want default", cfg.Providers[0].APIKey)
	}
	if cfg.Providers[0].Kind != "openai" || cfg.Providers[0].Role != "primary" {
		t.Errorf("provider defaults not applied: %+v", cfg.Providers[0])
	}
	if cfg.Gateway.BearerToken != "tok-123456" {
		t.Errorf("bearer = %q", cfg.Gateway.BearerToken)
	}
	if cfg.History.Retention != DefaultRetention || cfg.History.PruneSchedule != DefaultPruneSchedule {
		t.Errorf("history defaults not applied: %+v", cfg.History)
	}
	if got := cfg.Secrets(); len(got) != 2 {
		t.Errorf("secrets = %v", got)
	}
}

func TestParse_UnresolvedVariable(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("gateway:\n  bearer_token: ${FITAGENT_SURELY_UNSET_VAR}\n"))
	if err == nil || !strings.Contains(err.Error(), "FITAGENT_SURELY_UNSET_VAR") {
		t.Fatalf("err = %v", err)
	}
}

func TestParse_UnknownField(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("agent:\n  max_stepz: 3\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Agent.MaxSteps != DefaultMaxSteps || cfg.Gateway.Bind != DefaultBind {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fitagent.yaml")
	body := "providers:\n  - model: m\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers[0].Name != "openai-m" {
		t.Errorf("name = %q", cfg.Providers[0].Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func validConfig() *Config {
	cfg := &Config{Providers: []ProviderConfig{{Model: "m"}}}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = "2" }, "unsupported version"},
		{"no providers", func(c *Config) { c.Providers = nil }, "at least one provider"},
		{"zero steps", func(c *Config) { c.Agent.MaxSteps = 0 }, "max_steps"},
		{"fallback prompt", func(c *Config) { c.Agent.FallbackPrompt = "answer" }, "{question}"},
		{"only fallback", func(c *Config) { c.Providers[0].Role = "fallback" }, "role primary"},
		{"bad role", func(c *Config) { c.Providers[0].Role = "backup" }, "role must be"},
		{"bad kind", func(c *Config) { c.Providers[0].Kind = "grpc" }, "unknown kind"},
		{"missing model", func(c *Config) { c.Providers[0].Model = "" }, "model is required"},
		{"duplicate", func(c *Config) { c.Providers = append(c.Providers, c.Providers[0]) }, "duplicate name"},
		{"bad schedule", func(c *Config) {
			c.History.Path = "h.db"
			c.History.PruneSchedule = "often"
		}, "prune_schedule"},
		{"bad bind", func(c *Config) { c.Gateway.Bind = "8080" }, "gateway.bind"},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad ratio", func(c *Config) { c.Telemetry.SampleRatio = 2 }, "sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Version = "9"
	cfg.Agent.MaxSteps = -1
	cfg.Log.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := strings.Count(err.Error(), "config:"); n != 3 {
		t.Errorf("got %d errors, want 3: %v", n, err)
	}
}
