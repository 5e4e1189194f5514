package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/fitagent/internal/provider"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string            `json:"status"` // "ok" or "degraded"
	Providers []provider.Status `json:"providers,omitempty"`
}

// handleHealth returns 200 when every provider is available, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if g.deps.Health != nil {
			resp.Providers = g.deps.Health.HealthReport()
			for _, p := range resp.Providers {
				if !p.Available {
					resp.Status = "degraded"
					break
				}
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

// StatusResponse is the JSON response for GET /v1/status.
type StatusResponse struct {
	UptimeSeconds int64             `json:"uptime_seconds"`
	ActiveRuns    int               `json:"active_runs"`
	MaxRuns       int               `json:"max_concurrent_runs"`
	Providers     []provider.Status `json:"providers,omitempty"`
}

// handleStatus reports uptime, run slots in use, and providers.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
			MaxRuns:       g.config.MaxConcurrentRuns,
		}
		if g.slots != nil {
			resp.ActiveRuns = len(g.slots)
		}
		if g.deps.Health != nil {
			resp.Providers = g.deps.Health.HealthReport()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
