package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ChainEntry configures a single provider in the chain.
type ChainEntry struct {
	Name     string
	Provider Provider
	Role     Role
	Health   HealthConfig
}

type chainEntry struct {
	ChainEntry
	health *healthTracker
}

// Status is a point-in-time view of one chain entry, used by health endpoints.
// LastFailure is the Reason label of the most recent failure; RetryAt is set
// while the entry is cooling down.
type Status struct {
	Name        string     `json:"name"`
	Model       string     `json:"model"`
	Role        Role       `json:"role"`
	State       string     `json:"state"`
	Available   bool       `json:"available"`
	Failures    int        `json:"failures"`
	LastFailure string     `json:"last_failure,omitempty"`
	RetryAt     *time.Time `json:"retry_at,omitempty"`
}

// ChainOption configures optional Chain behavior.
type ChainOption func(*Chain)

// WithLogger injects a structured logger into the Chain.
// When nil or omitted, log output is discarded.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// Chain fails over across several providers. Primary entries are tried
// first in configuration order, then fallback entries. Entries that keep
// failing are put in exponential cooldown and eventually marked dead until
// a background probe revives them.
//
// Chain itself implements Provider, so the agent engine never sees failover.
// It holds no per-task state and is safe to share across agents.
type Chain struct {
	entries []chainEntry
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ Provider = (*Chain)(nil)

// NewChain creates a chain from the given entries.
func NewChain(entries []ChainEntry, opts ...ChainOption) (*Chain, error) {
	if len(entries) == 0 {
		return nil, ErrNoProvider
	}

	var primaries, fallbacks []chainEntry
	for _, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("%w: entry %q has nil provider", ErrNoProvider, e.Name)
		}
		ce := chainEntry{ChainEntry: e, health: newHealthTracker(e.Health)}
		if e.Role == RoleFallback {
			fallbacks = append(fallbacks, ce)
		} else {
			primaries = append(primaries, ce)
		}
	}

	c := &Chain{entries: append(primaries, fallbacks...)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	for i := range c.entries {
		e := &c.entries[i]
		logger := c.logger.With("provider", e.Name)
		e.health.onStateChange = func(from, to healthState, snap healthSnapshot) {
			switch to {
			case stateCooldown:
				logger.Warn("provider entered cooldown",
					"backoff", snap.backoff,
					"failures", snap.failures,
					"reason", snap.reason,
				)
			case stateDead:
				logger.Error("provider marked dead", "failures", snap.failures, "reason", snap.reason)
			case stateHealthy:
				logger.Info("provider revived", "previous_state", from.String())
			}
		}
	}

	return c, nil
}

// Start launches the background health probe goroutine.
func (c *Chain) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	go probeLoop(ctx, minHealthCheckInterval(c.entries), c.entries)
}

// Stop cancels background health probes.
func (c *Chain) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// ModelName returns the model of the first available entry.
func (c *Chain) ModelName() string {
	for i := range c.entries {
		if c.entries[i].health.IsAvailable() {
			return c.entries[i].Provider.ModelName()
		}
	}
	return c.entries[0].Provider.ModelName()
}

// Complete sends the request to the best available provider, failing over
// on retryable errors. Non-retryable errors are returned immediately.
func (c *Chain) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error
	for i := range c.entries {
		e := &c.entries[i]
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}
		if !e.health.IsAvailable() {
			continue
		}

		start := time.Now()
		resp, err := e.Provider.Complete(ctx, req)
		if err == nil {
			e.health.RecordSuccess()
			c.logger.Debug("completion served",
				"provider", e.Name,
				"latency", time.Since(start),
				"tokens", resp.Usage.TotalTokens,
			)
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			c.logger.Debug("provider error is final", "provider", e.Name, "reason", Reason(err))
			return CompletionResponse{}, err
		}

		e.health.RecordFailure(err)
		c.logger.Warn("provider failed, failing over",
			"provider", e.Name,
			"reason", Reason(err),
			"error", err,
		)
	}

	if lastErr != nil {
		c.logger.Error("all providers exhausted", "last_error", lastErr)
		return CompletionResponse{}, fmt.Errorf("%w: last error: %w", ErrAllProviders, lastErr)
	}
	c.logger.Error("all providers exhausted: none available")
	return CompletionResponse{}, fmt.Errorf("%w: all candidates unavailable", ErrAllProviders)
}

// HealthReport returns the current status of every entry in chain order.
func (c *Chain) HealthReport() []Status {
	report := make([]Status, 0, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		snap := e.health.snapshot()
		st := Status{
			Name:        e.Name,
			Model:       e.Provider.ModelName(),
			Role:        e.roleOrPrimary(),
			State:       snap.state.String(),
			Available:   e.health.IsAvailable(),
			Failures:    snap.failures,
			LastFailure: snap.reason,
		}
		if !snap.retryAt.IsZero() {
			st.RetryAt = &snap.retryAt
		}
		report = append(report, st)
	}
	return report
}

func (e *chainEntry) roleOrPrimary() Role {
	if e.Role == "" {
		return RolePrimary
	}
	return e.Role
}

// minHealthCheckInterval returns the shortest configured probe interval.
func minHealthCheckInterval(entries []chainEntry) time.Duration {
	interval := defaultCheckInterval
	for i, e := range entries {
		d := e.Health.checkIntervalOrDefault()
		if i == 0 || d < interval {
			interval = d
		}
	}
	return interval
}

// probeLoop periodically probes entries that are dead or whose cooldown
// expired. It blocks until ctx is cancelled.
func probeLoop(ctx context.Context, interval time.Duration, entries []chainEntry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range entries {
				e := &entries[i]
				if !e.health.ShouldHealthCheck() {
					continue
				}
				checker, ok := e.Provider.(HealthChecker)
				if !ok {
					continue
				}
				if err := checker.HealthCheck(ctx); err == nil {
					e.health.RecordSuccess()
				}
			}
		}
	}
}
