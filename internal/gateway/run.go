package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/flemzord/fitagent/internal/agent"
	"github.com/flemzord/fitagent/internal/provider"
)

const (
	maxRequestBytes  = 1 << 20
	keepAlivePeriod  = 15 * time.Second
	wsRequestTimeout = 30 * time.Second
)

// RunRequest is the body of POST /v1/agent/run and /v1/agent/stream, and
// the first WebSocket message.
type RunRequest struct {
	Prompt string `json:"prompt"`
}

// RunResponse is the JSON response for POST /v1/agent/run.
type RunResponse struct {
	Result string              `json:"result"`
	State  agent.State         `json:"state"`
	Steps  int                 `json:"steps"`
	Usage  provider.TokenUsage `json:"usage"`
	Error  string              `json:"error,omitempty"`
}

// handleRun executes a task synchronously and returns the step log.
func (g *Gateway) handleRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRunRequest(w, r)
		if !ok {
			return
		}
		a, release, ok := g.newRun(w)
		if !ok {
			return
		}
		defer release()

		out, err := a.Run(r.Context(), req.Prompt)
		if err != nil {
			writeRunError(w, err)
			return
		}

		resp := RunResponse{
			Result: out,
			State:  a.State(),
			Steps:  a.Steps(),
			Usage:  a.Usage(),
		}
		if runErr := a.Err(); runErr != nil {
			resp.Error = runErr.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleStream runs a task and relays its events as Server-Sent Events.
// The event name is the event type. A client disconnect cancels the run.
func (g *Gateway) handleStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		req, ok := decodeRunRequest(w, r)
		if !ok {
			return
		}
		a, release, ok := g.newRun(w)
		if !ok {
			return
		}
		defer release()

		sess, err := a.RunStream(r.Context(), req.Prompt)
		if err != nil {
			writeRunError(w, err)
			return
		}
		defer sess.Cancel()

		// The run is bounded by its own deadline, not the server write timeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		w.Header().Set("X-Session-ID", sess.ID())
		sw := newSSEWriter(w)

		ping := time.NewTicker(keepAlivePeriod)
		defer ping.Stop()

		for {
			select {
			case ev, open := <-sess.Events():
				if !open {
					return
				}
				if err := sw.Event(string(ev.Type), ev); err != nil {
					g.logger.Debug("gateway: sse write failed", "session", sess.ID(), "error", err)
					return
				}
			case <-ping.C:
				if err := sw.Comment("ping"); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

// handleWebSocket runs a task over a WebSocket. The client sends one
// RunRequest; every event is then written as a JSON text message and the
// connection is closed normally after the complete event. Any further
// client message, or a disconnect, cancels the run.
func (g *Gateway) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Error("gateway: websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		readCtx, cancel := context.WithTimeout(r.Context(), wsRequestTimeout)
		var req RunRequest
		err = wsjson.Read(readCtx, conn, &req)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusUnsupportedData, "expected run request")
			return
		}

		release, ok := g.acquire()
		if !ok {
			_ = conn.Close(websocket.StatusTryAgainLater, "too many concurrent runs")
			return
		}
		defer release()

		a, err := g.deps.NewAgent()
		if err != nil {
			g.logger.Error("gateway: building agent", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "agent unavailable")
			return
		}

		ctx := conn.CloseRead(r.Context())
		sess, err := a.RunStream(ctx, req.Prompt)
		if err != nil {
			_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
		defer sess.Cancel()

		for ev := range sess.Events() {
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				g.logger.Debug("gateway: websocket write failed", "session", sess.ID(), "error", err)
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// newRun reserves a run slot and builds an agent, writing the error
// response itself when either fails.
func (g *Gateway) newRun(w http.ResponseWriter) (*agent.Agent, func(), bool) {
	release, ok := g.acquire()
	if !ok {
		writeError(w, http.StatusTooManyRequests, "too many concurrent runs")
		return nil, nil, false
	}
	a, err := g.deps.NewAgent()
	if err != nil {
		release()
		g.logger.Error("gateway: building agent", "error", err)
		writeError(w, http.StatusInternalServerError, "agent unavailable")
		return nil, nil, false
	}
	return a, release, true
}

func decodeRunRequest(w http.ResponseWriter, r *http.Request) (RunRequest, bool) {
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, agent.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
