package gateway

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/fitagent/internal/agent"
	"github.com/flemzord/fitagent/internal/history"
	"github.com/flemzord/fitagent/internal/provider"
	"github.com/flemzord/fitagent/internal/provider/providertest"
	"github.com/flemzord/fitagent/internal/tool"
)

// answerFactory builds agents whose model answers directly with text.
func answerFactory(text string) AgentFactory {
	return providerFactory(func() provider.Provider {
		return providertest.Sequence(providertest.Text(text))
	})
}

func providerFactory(newLLM func() provider.Provider) AgentFactory {
	return func() (*agent.Agent, error) {
		reg := tool.NewRegistry()
		step := agent.NewToolCallStep(newLLM(), agent.NewToolExecutor(agent.ToolExecutorConfig{Registry: reg}), reg, agent.StepConfig{})
		return agent.New(step, agent.WithCatalog(reg)), nil
	}
}

func newTestServer(t *testing.T, cfg Config, deps Deps) *httptest.Server {
	t.Helper()
	g, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)
	return srv
}

type fakeHistory struct {
	records []history.Record
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Record, error) {
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeHistory) Get(_ context.Context, id string) (history.Record, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return history.Record{}, fmt.Errorf("%w: %s", history.ErrNotFound, id)
}

type fakeHealth struct {
	statuses []provider.Status
}

func (f fakeHealth) HealthReport() []provider.Status { return f.statuses }

type fakeRecorder struct {
	mu     sync.Mutex
	routes map[string]int
}

func (f *fakeRecorder) RecordRequest(route string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.routes == nil {
		f.routes = make(map[string]int)
	}
	f.routes[route] = code
}

func (f *fakeRecorder) code(route string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.routes[route]
	return c, ok
}

var sampleRecords = []history.Record{
	{ID: "r2", Mode: agent.ModeStream, Prompt: "squat form?", Result: "knees out", State: "finished", Steps: 1, CreatedAt: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)},
	{ID: "r1", Mode: agent.ModeBlocking, Prompt: "protein?", Result: "1.6 g/kg", State: "finished", Steps: 1, CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
}
