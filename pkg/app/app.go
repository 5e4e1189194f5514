// Package app assembles fitagent from its configuration: the provider
// chain, the tool registry, run history, scheduled maintenance, telemetry,
// and the HTTP gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/flemzord/fitagent/internal/agent"
	"github.com/flemzord/fitagent/internal/config"
	"github.com/flemzord/fitagent/internal/cron"
	"github.com/flemzord/fitagent/internal/gateway"
	"github.com/flemzord/fitagent/internal/history"
	"github.com/flemzord/fitagent/internal/logging"
	"github.com/flemzord/fitagent/internal/provider"
	"github.com/flemzord/fitagent/internal/telemetry"
	"github.com/flemzord/fitagent/internal/tool"
	"github.com/flemzord/fitagent/internal/tool/builtin"
	"github.com/flemzord/fitagent/modules/provider/openai"
)

const historyWriteTimeout = 5 * time.Second

// ProviderFactory builds the client for one configured provider.
type ProviderFactory func(cfg config.ProviderConfig, logger *slog.Logger) (provider.Provider, error)

// Option configures New.
type Option func(*App)

// WithProviderFactory replaces the default langchaingo-backed clients.
func WithProviderFactory(f ProviderFactory) Option {
	return func(a *App) { a.newProvider = f }
}

// WithVersion sets the version reported to tracing.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// App holds the long-lived components shared by every agent run.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	version     string
	newProvider ProviderFactory

	workspace string
	chain     *provider.Chain
	registry  *tool.Registry
	history   *history.Store
	metrics   *telemetry.Metrics
	scheduler *cron.Scheduler
	tracing   telemetry.ShutdownFunc
}

// NewLogger builds the process logger from cfg. Every configured secret is
// redacted from the output.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	redactor := logging.NewRedactor()
	for _, s := range cfg.Secrets() {
		redactor.AddLiteral(s)
	}
	return logging.New(w, logging.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Redactor: redactor,
	})
}

// New builds every component described by cfg. cfg must be valid.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	a := &App{
		cfg:         cfg,
		logger:      logger,
		newProvider: defaultProvider,
		metrics:     telemetry.NewMetrics(),
		scheduler:   cron.NewScheduler(logger),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}

	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if a.workspace, err = filepath.Abs(cfg.Tools.Workspace); err != nil {
		return nil, fmt.Errorf("app: workspace: %w", err)
	}

	if a.chain, err = a.buildChain(); err != nil {
		return nil, err
	}
	if a.registry, err = a.buildRegistry(); err != nil {
		return nil, err
	}

	if cfg.History.Path != "" {
		if a.history, err = history.Open(ctx, cfg.History.Path); err != nil {
			return nil, err
		}
		if err = a.scheduler.RegisterJob(&cron.HistoryPruneJob{
			Store:        a.history,
			Retention:    cfg.History.Retention,
			ScheduleExpr: cfg.History.PruneSchedule,
			Logger:       a.logger,
		}); err != nil {
			return nil, err
		}
	}
	if cfg.Tools.ReportRetention > 0 {
		if err = a.scheduler.RegisterJob(&cron.ReportCleanupJob{
			Dir:       filepath.Join(a.workspace, "reports"),
			Retention: cfg.Tools.ReportRetention,
			Logger:    a.logger,
		}); err != nil {
			return nil, err
		}
	}

	if a.tracing, err = telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     a.version,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}); err != nil {
		return nil, err
	}

	return a, nil
}

func defaultProvider(pc config.ProviderConfig, logger *slog.Logger) (provider.Provider, error) {
	return openai.New(openai.Config{
		APIKey:  pc.APIKey,
		Model:   pc.Model,
		BaseURL: pc.BaseURL,
	}, logger)
}

func (a *App) buildChain() (*provider.Chain, error) {
	entries := make([]provider.ChainEntry, 0, len(a.cfg.Providers))
	for _, pc := range a.cfg.Providers {
		p, err := a.newProvider(pc, a.logger)
		if err != nil {
			return nil, fmt.Errorf("app: provider %s: %w", pc.Name, err)
		}
		entries = append(entries, provider.ChainEntry{
			Name:     pc.Name,
			Provider: p,
			Role:     provider.Role(pc.Role),
			Health: provider.HealthConfig{
				InitialBackoff: pc.Health.InitialBackoff,
				MaxBackoff:     pc.Health.MaxBackoff,
				MaxFailures:    pc.Health.MaxFailures,
				CheckInterval:  pc.Health.CheckInterval,
			},
		})
	}
	return provider.NewChain(entries, provider.WithLogger(a.logger))
}

func (a *App) buildRegistry() (*tool.Registry, error) {
	reg := tool.NewRegistry()
	reg.SetLogger(a.logger)

	limit := a.cfg.Tools.ReadMaxBytes
	if limit <= 0 {
		limit = builtin.DefaultReadLimit
	}
	for _, t := range []tool.Tool{
		&builtin.Terminate{},
		&builtin.SaveReport{},
		&builtin.ReadFile{MaxBytes: limit},
	} {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return reg, nil
}

// Start launches provider health probes and scheduled jobs.
func (a *App) Start(ctx context.Context) error {
	a.chain.Start(ctx)
	return a.scheduler.Start(ctx)
}

// Metrics returns the Prometheus metrics.
func (a *App) Metrics() *telemetry.Metrics { return a.metrics }

// History returns the run store, or nil when history is disabled.
func (a *App) History() *history.Store { return a.history }

// Scheduler returns the maintenance job scheduler.
func (a *App) Scheduler() *cron.Scheduler { return a.scheduler }

// NewAgent builds a fresh agent for one task. Its outcome is recorded in
// history and metrics when the run ends.
func (a *App) NewAgent() (*agent.Agent, error) {
	ac := a.cfg.Agent
	step := agent.NewToolCallStep(
		a.chain,
		agent.NewToolExecutor(agent.ToolExecutorConfig{
			Registry: a.registry,
			Env:      tool.ExecutionEnv{Workspace: a.workspace},
			Logger:   a.logger,
		}),
		a.registry,
		agent.StepConfig{
			SystemPrompt:    ac.SystemPrompt,
			NextStepPrompt:  ac.NextStepPrompt,
			FallbackPrompt:  ac.FallbackPrompt,
			MaxTokens:       ac.MaxTokens,
			Temperature:     ac.Temperature,
			RepeatThreshold: ac.RepeatThreshold,
		},
	)

	var (
		ag    *agent.Agent
		final string
	)
	ag = agent.New(step,
		agent.WithConfig(agent.Config{MaxSteps: ac.MaxSteps, StreamTimeout: ac.StreamTimeout}),
		agent.WithLogger(a.logger),
		agent.WithRecorder(a.metrics),
		agent.WithCatalog(a.registry),
		agent.WithCompletionHook(func(_, f string) { final = f }),
		agent.WithCleanup(func() { a.finishRun(ag, final) }),
	)
	return ag, nil
}

// finishRun records a finished run. It runs on the agent's cleanup path,
// after the completion hook.
func (a *App) finishRun(ag *agent.Agent, final string) {
	usage := ag.Usage()
	a.metrics.RecordUsage(usage)

	if a.history == nil {
		return
	}

	var prompt string
	for _, m := range ag.Messages() {
		if m.Role == provider.MessageRoleUser {
			prompt = m.Content
			break
		}
	}
	result := final
	if result == "" {
		if err := ag.Err(); err != nil {
			result = "error: " + err.Error()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if _, err := a.history.Record(ctx, history.Record{
		ID:     ag.SessionID(),
		Mode:   ag.Mode(),
		Prompt: prompt,
		Result: result,
		State:  string(ag.State()),
		Steps:  ag.Steps(),
		Usage:  usage,
	}); err != nil {
		a.logger.Error("app: recording run", "error", err)
	}
}

// Gateway builds the HTTP gateway over this app.
func (a *App) Gateway() (*gateway.Gateway, error) {
	g := a.cfg.Gateway
	deps := gateway.Deps{
		NewAgent: a.NewAgent,
		Health:   a.chain,
		Recorder: a.metrics,
		Metrics:  a.metrics.Handler(),
		Logger:   a.logger,
	}
	if a.history != nil {
		deps.History = a.history
	}
	return gateway.New(gateway.Config{
		Bind:              g.Bind,
		BearerToken:       g.BearerToken,
		ReadTimeout:       g.ReadTimeout,
		WriteTimeout:      g.WriteTimeout,
		MaxConcurrentRuns: g.MaxConcurrentRuns,
		RunsPerMinute:     g.RunsPerMinute,
	}, deps)
}

// Close stops background work and releases resources.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.chain != nil {
		a.chain.Stop()
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing(ctx))
	}
	return errors.Join(errs...)
}
