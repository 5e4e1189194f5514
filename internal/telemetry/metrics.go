// Package telemetry exposes Prometheus metrics for agent runs and sets up
// OpenTelemetry tracing.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/fitagent/internal/agent"
	"github.com/flemzord/fitagent/internal/provider"
)

const namespace = "fitagent"

// Metrics records agent activity on a private Prometheus registry.
// It implements agent.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	runsStarted  *prometheus.CounterVec
	runsFinished *prometheus.CounterVec
	activeRuns   *prometheus.GaugeVec
	runDuration  *prometheus.HistogramVec
	runSteps     *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	tokens       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// Compile-time interface check.
var _ agent.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers all collectors. Go runtime and process
// collectors are included.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_started_total",
			Help: "Agent runs started.",
		}, []string{"mode"}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_finished_total",
			Help: "Agent runs finished, by terminal state.",
		}, []string{"mode", "state"}),
		activeRuns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_runs",
			Help: "Agent runs in progress.",
		}, []string{"mode"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Wall time of agent runs.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		runSteps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_steps",
			Help:    "Steps executed per run.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}, []string{"mode"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "step_duration_seconds",
			Help:    "Wall time of single think/act steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "step_failures_total",
			Help: "Steps that failed and were absorbed by the loop.",
		}, []string{"mode"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_tokens_total",
			Help: "Tokens consumed by completions.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Gateway requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsStarted, m.runsFinished, m.activeRuns, m.runDuration,
		m.runSteps, m.stepDuration, m.stepFailures, m.tokens, m.httpRequests,
	)
	return m
}

// RunStarted implements agent.Recorder.
func (m *Metrics) RunStarted(mode string) {
	m.runsStarted.WithLabelValues(mode).Inc()
	m.activeRuns.WithLabelValues(mode).Inc()
}

// StepCompleted implements agent.Recorder.
func (m *Metrics) StepCompleted(mode string, d time.Duration, failed bool) {
	m.stepDuration.WithLabelValues(mode).Observe(d.Seconds())
	if failed {
		m.stepFailures.WithLabelValues(mode).Inc()
	}
}

// RunFinished implements agent.Recorder.
func (m *Metrics) RunFinished(mode string, state agent.State, steps int, d time.Duration) {
	m.activeRuns.WithLabelValues(mode).Dec()
	m.runsFinished.WithLabelValues(mode, string(state)).Inc()
	m.runDuration.WithLabelValues(mode).Observe(d.Seconds())
	m.runSteps.WithLabelValues(mode).Observe(float64(steps))
}

// RecordUsage adds token counts from a finished run.
func (m *Metrics) RecordUsage(u provider.TokenUsage) {
	if u.PromptTokens > 0 {
		m.tokens.WithLabelValues("prompt").Add(float64(u.PromptTokens))
	}
	if u.CompletionTokens > 0 {
		m.tokens.WithLabelValues("completion").Add(float64(u.CompletionTokens))
	}
}

// RecordRequest counts one gateway request.
func (m *Metrics) RecordRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
