package agent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/fitagent/internal/provider"
	"github.com/flemzord/fitagent/internal/tool"
)

// ToolInvoker turns an assistant message requesting tool calls into an
// extended conversation: history, then the request, then one tool message
// per call in order.
type ToolInvoker interface {
	Invoke(ctx context.Context, history []provider.LLMMessage, request provider.LLMMessage) ([]provider.LLMMessage, error)
}

// ToolExecutorConfig holds the dependencies for tool execution.
type ToolExecutorConfig struct {
	Registry *tool.Registry
	Env      tool.ExecutionEnv
	Logger   *slog.Logger
}

// ToolExecutor runs tool calls sequentially through a registry with panic
// recovery.
type ToolExecutor struct {
	registry *tool.Registry
	env      tool.ExecutionEnv
	logger   *slog.Logger
}

// NewToolExecutor creates a ToolExecutor from the given configuration.
func NewToolExecutor(cfg ToolExecutorConfig) *ToolExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ToolExecutor{
		registry: cfg.Registry,
		env:      cfg.Env,
		logger:   logger,
	}
}

// Invoke implements ToolInvoker. Tool errors and panics become error tool
// messages; only a missing registry or a done context fails the call.
func (e *ToolExecutor) Invoke(ctx context.Context, history []provider.LLMMessage, request provider.LLMMessage) ([]provider.LLMMessage, error) {
	if e.registry == nil {
		return nil, &ToolExecutionError{Err: ErrNoRegistry}
	}

	out := make([]provider.LLMMessage, 0, len(history)+1+len(request.ToolCalls))
	out = append(out, history...)
	out = append(out, request)

	for _, call := range request.ToolCalls {
		if err := ctx.Err(); err != nil {
			return nil, &ToolExecutionError{Tool: call.Name, Err: err}
		}
		res := e.executeSingle(ctx, call)
		out = append(out, provider.ToolMessage(call.ID, call.Name, res.Content, res.IsError))
	}
	return slices.Clip(out), nil
}

func (e *ToolExecutor) executeSingle(ctx context.Context, tc provider.ToolCall) (out tool.Output) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked", "tool", tc.Name, "panic", r)
			out = tool.Output{
				Content: fmt.Sprintf("Error: tool panicked: %v", r),
				IsError: true,
			}
		}
		e.logger.Debug("tool executed",
			"tool", tc.Name,
			"duration", time.Since(start),
			"is_error", out.IsError,
		)
	}()

	res, err := e.registry.Execute(ctx, tc.Name, tc.Arguments, e.env)
	if err != nil {
		return tool.Output{Content: "Error: " + err.Error(), IsError: true}
	}
	if res.IsError && !strings.HasPrefix(res.Content, "Error:") {
		res.Content = "Error: " + res.Content
	}
	return res
}
