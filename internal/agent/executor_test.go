package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/fitagent/internal/provider"
	"github.com/flemzord/fitagent/internal/tool"
	"github.com/flemzord/fitagent/internal/tool/tooltest"
)

func newTestExecutor(t *testing.T, tools ...tool.Tool) *ToolExecutor {
	t.Helper()

	reg := tool.NewRegistry()
	for _, tl := range tools {
		if err := reg.Register(tl); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return NewToolExecutor(ToolExecutorConfig{Registry: reg})
}

func TestToolExecutor_SequentialInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mk := func(name string) *tooltest.MockTool {
		return &tooltest.MockTool{
			NameValue: name,
			ExecuteFunc: func(context.Context, json.RawMessage, tool.ExecutionEnv) (tool.Output, error) {
				order = append(order, name)
				return tool.Output{Content: name + "-out"}, nil
			},
		}
	}
	e := newTestExecutor(t, mk("a"), mk("b"), mk("c"))

	history := []provider.LLMMessage{provider.UserMessage("hi")}
	request := provider.AssistantMessage("", []provider.ToolCall{
		{ID: "1", Name: "c"}, {ID: "2", Name: "a"}, {ID: "3", Name: "b"},
	})

	got, err := e.Invoke(context.Background(), history, request)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if strings.Join(order, ",") != "c,a,b" {
		t.Errorf("execution order = %v", order)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[1].Role != provider.MessageRoleAssistant || len(got[1].ToolCalls) != 3 {
		t.Errorf("request message = %+v", got[1])
	}
	for i, want := range []string{"c", "a", "b"} {
		m := got[2+i]
		if m.Role != provider.MessageRoleTool || m.Name != want || m.Content != want+"-out" {
			t.Errorf("response %d = %+v", i, m)
		}
	}
	if len(history) != 1 {
		t.Error("history slice was modified")
	}
}

func TestToolExecutor_ErrorsBecomeToolMessages(t *testing.T) {
	t.Parallel()

	panicky := &tooltest.MockTool{
		NameValue: "panicky",
		ExecuteFunc: func(context.Context, json.RawMessage, tool.ExecutionEnv) (tool.Output, error) {
			panic("oops")
		},
	}
	soft := &tooltest.MockTool{
		NameValue: "soft",
		ExecuteFunc: func(context.Context, json.RawMessage, tool.ExecutionEnv) (tool.Output, error) {
			return tool.Output{Content: "quota reached", IsError: true}, nil
		},
	}
	e := newTestExecutor(t, panicky, soft)

	got, err := e.Invoke(context.Background(), nil, provider.AssistantMessage("", []provider.ToolCall{
		{ID: "1", Name: "panicky"},
		{ID: "2", Name: "missing"},
		{ID: "3", Name: "soft"},
	}))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	wants := []string{"Error: tool panicked: oops", "Error: tool not found", "Error: quota reached"}
	for i, want := range wants {
		m := got[1+i]
		if !m.IsError || !strings.HasPrefix(m.Content, want) {
			t.Errorf("response %d = %+v, want prefix %q", i, m, want)
		}
	}
}

func TestToolExecutor_CancelledContext(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t, &tooltest.MockTool{NameValue: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Invoke(ctx, nil, provider.AssistantMessage("", []provider.ToolCall{{ID: "1", Name: "a"}}))
	var te *ToolExecutionError
	if !errors.As(err, &te) || te.Tool != "a" {
		t.Fatalf("err = %v, want ToolExecutionError for a", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err does not wrap context.Canceled")
	}
}

func TestToolExecutor_NoRegistry(t *testing.T) {
	t.Parallel()

	_, err := NewToolExecutor(ToolExecutorConfig{}).Invoke(context.Background(), nil, provider.AssistantMessage("", nil))
	if !errors.Is(err, ErrNoRegistry) {
		t.Errorf("err = %v, want ErrNoRegistry", err)
	}
}
