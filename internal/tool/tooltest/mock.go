// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flemzord/fitagent/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameValue   string
	Desc        string
	SchemaValue json.RawMessage
	Caps        tool.Capabilities
	ExecuteFunc func(ctx context.Context, args json.RawMessage, env tool.ExecutionEnv) (tool.Output, error)

	mu           sync.Mutex
	ExecuteCalls int
	Args         []json.RawMessage
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock-tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.Desc != "" {
		return m.Desc
	}
	return "a mock tool"
}

// Schema implements tool.Tool.
func (m *MockTool) Schema() json.RawMessage {
	if m.SchemaValue != nil {
		return m.SchemaValue
	}
	return json.RawMessage(`{}`)
}

// Capabilities implements tool.Tool.
func (m *MockTool) Capabilities() tool.Capabilities { return m.Caps }

// Execute implements tool.Tool.
func (m *MockTool) Execute(ctx context.Context, args json.RawMessage, env tool.ExecutionEnv) (tool.Output, error) {
	m.mu.Lock()
	m.ExecuteCalls++
	m.Args = append(m.Args, args)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args, env)
	}
	return tool.Output{Content: "ok"}, nil
}

// Calls returns the number of Execute invocations.
func (m *MockTool) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}
