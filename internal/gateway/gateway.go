// Package gateway exposes the agent engine over HTTP: blocking runs,
// Server-Sent Events and WebSocket streams, run history, health, and
// Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/fitagent/internal/agent"
	"github.com/flemzord/fitagent/internal/history"
	"github.com/flemzord/fitagent/internal/provider"
)

// AgentFactory builds a fresh Agent for one request.
type AgentFactory func() (*agent.Agent, error)

// HistoryReader lists recorded runs.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
	Get(ctx context.Context, id string) (history.Record, error)
}

// HealthReporter reports provider availability.
type HealthReporter interface {
	HealthReport() []provider.Status
}

// RequestRecorder counts served requests.
type RequestRecorder interface {
	RecordRequest(route string, code int)
}

// Deps are the collaborators of a Gateway. Only NewAgent is required.
type Deps struct {
	NewAgent AgentFactory
	History  HistoryReader
	Health   HealthReporter
	Recorder RequestRecorder
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Gateway is the HTTP front end of the engine.
type Gateway struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	slots     chan struct{}
	limiter   *rateLimiter
	startedAt time.Time
	handler   http.Handler

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a Gateway.
func New(cfg Config, deps Deps) (*Gateway, error) {
	if deps.NewAgent == nil {
		return nil, errors.New("gateway: agent factory is required")
	}
	cfg.defaults()

	g := &Gateway{
		config:    cfg,
		deps:      deps,
		logger:    deps.Logger,
		startedAt: time.Now(),
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxConcurrentRuns > 0 {
		g.slots = make(chan struct{}, cfg.MaxConcurrentRuns)
	}
	if cfg.RunsPerMinute > 0 {
		g.limiter = newRateLimiter(cfg.RunsPerMinute, time.Minute)
	}
	g.handler = g.buildRouter()
	return g, nil
}

// Handler returns the routed HTTP handler.
func (g *Gateway) Handler() http.Handler { return g.handler }

// Start listens on the configured address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	srv := &http.Server{
		Handler:           g.handler,
		ReadHeaderTimeout: g.config.ReadTimeout,
		ReadTimeout:       g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	g.mu.Lock()
	g.server = srv
	g.addr = ln.Addr()
	g.mu.Unlock()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.addr == nil {
		return ""
	}
	return g.addr.String()
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return srv.Shutdown(shutdownCtx)
}

// acquire reserves a run slot. It reports false when the gateway is at
// capacity.
func (g *Gateway) acquire() (release func(), ok bool) {
	if g.slots == nil {
		return func() {}, true
	}
	select {
	case g.slots <- struct{}{}:
		return func() { <-g.slots }, true
	default:
		return nil, false
	}
}
