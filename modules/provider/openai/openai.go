// Package openai adapts any OpenAI-compatible chat completions endpoint to
// provider.Provider through langchaingo.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	llmopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/flemzord/fitagent/internal/provider"
)

// Compile-time interface guards.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
)

// Provider sends completion requests through a langchaingo model.
type Provider struct {
	config Config
	model  llms.Model
	logger *slog.Logger
}

// New builds a Provider backed by langchaingo's OpenAI client.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []llmopenai.Option{
		llmopenai.WithModel(cfg.Model),
		llmopenai.WithBaseURL(cfg.BaseURL),
		llmopenai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	// langchaingo falls back to OPENAI_API_KEY when no token is set and
	// rejects an empty one, so keyless local servers get a placeholder.
	token := cfg.APIKey
	if token == "" {
		token = "unused"
	}
	opts = append(opts, llmopenai.WithToken(token))

	llm, err := llmopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: creating client: %w", err)
	}
	return NewWithModel(cfg, llm, logger), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(cfg Config, model llms.Model, logger *slog.Logger) *Provider {
	cfg.defaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{config: cfg, model: model, logger: logger.With("model", cfg.Model)}
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	start := time.Now()
	resp, err := p.model.GenerateContent(ctx, toMessages(req.Messages), p.callOptions(req)...)
	if err != nil {
		p.logger.Debug("openai: completion failed", "error", err, "latency", time.Since(start))
		return provider.CompletionResponse{}, mapError(err)
	}

	out := fromResponse(resp)
	p.logger.Debug("openai: completion",
		"latency", time.Since(start),
		"tool_calls", len(out.ToolCalls),
		"total_tokens", out.Usage.TotalTokens,
	)
	return out, nil
}

func (p *Provider) callOptions(req provider.CompletionRequest) []llms.CallOption {
	var opts []llms.CallOption

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	temp := req.Temperature
	if temp == nil {
		temp = p.config.Temperature
	}
	if temp != nil {
		opts = append(opts, llms.WithTemperature(*temp))
	}

	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(toTools(req.Tools)))
	}
	return opts
}

// HealthCheck sends a minimal 1-token completion. This tests the full
// path: authentication, model access, and quota.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, provider.CompletionRequest{
		Messages:  []provider.LLMMessage{provider.UserMessage("hi")},
		MaxTokens: 1,
	})
	return err
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string {
	return p.config.Model
}
