// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/fitagent/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. Unset funcs panic on call,
// except ModelNameFunc which defaults to "mock-model".
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	ModelNameFunc   func() string
	HealthCheckFunc func(ctx context.Context) error

	mu            sync.Mutex
	CompleteCalls int
	HealthCalls   int
	Requests      []provider.CompletionRequest
}

// Complete delegates to CompleteFunc and records the request.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// ModelName delegates to ModelNameFunc.
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock-model"
	}
	return m.ModelNameFunc()
}

// HealthCheck delegates to HealthCheckFunc and tracks call count.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCalls++
	m.mu.Unlock()
	return m.HealthCheckFunc(ctx)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockProvider) LastRequest() provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return provider.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// Reply is one scripted outcome of a Sequence provider.
type Reply struct {
	Response provider.CompletionResponse
	Err      error
}

// Sequence returns a MockProvider that answers with replies in order and
// fails once they are exhausted.
func Sequence(replies ...Reply) *MockProvider {
	var (
		mu  sync.Mutex
		idx int
	)
	return &MockProvider{
		CompleteFunc: func(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
			mu.Lock()
			defer mu.Unlock()
			if idx >= len(replies) {
				return provider.CompletionResponse{}, fmt.Errorf("providertest: no more scripted replies (%d used)", idx)
			}
			r := replies[idx]
			idx++
			return r.Response, r.Err
		},
	}
}

// Text is a Reply carrying a plain assistant answer without tool calls.
func Text(content string) Reply {
	return Reply{Response: provider.CompletionResponse{Content: content, FinishReason: provider.FinishReasonStop}}
}

// Calls is a Reply requesting the given tool calls alongside optional text.
func Calls(content string, calls ...provider.ToolCall) Reply {
	return Reply{Response: provider.CompletionResponse{
		Content:      content,
		ToolCalls:    calls,
		FinishReason: provider.FinishReasonToolUse,
	}}
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
)
