package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, g.instrument)

	// Public, no auth.
	r.Get("/health", g.handleHealth())
	if g.deps.Metrics != nil {
		r.Handle("/metrics", g.deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if g.config.BearerToken != "" {
			r.Use(authMiddleware(g.config.BearerToken, g.logger))
		}
		r.Get("/status", g.handleStatus())
		r.Group(func(r chi.Router) {
			if g.limiter != nil {
				r.Use(g.limiter.middleware)
			}
			r.Post("/agent/run", g.handleRun())
			r.Post("/agent/stream", g.handleStream())
			r.Get("/agent/ws", g.handleWebSocket())
		})
		if g.deps.History != nil {
			r.Get("/history", g.handleListHistory())
			r.Get("/history/{id}", g.handleGetHistory())
		}
	})

	return r
}

// instrument logs each request and reports it to the recorder under its
// route pattern.
func (g *Gateway) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		if g.deps.Recorder != nil {
			g.deps.Recorder.RecordRequest(route, code)
		}
		g.logger.Debug("gateway: request",
			"method", r.Method,
			"route", route,
			"status", code,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
