package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors of the agent lifecycle.
var (
	// ErrInvalidState is returned when a run is requested on an agent that
	// is not Idle.
	ErrInvalidState = errors.New("agent: invalid state")

	// ErrInvalidArgument is returned for a blank prompt.
	ErrInvalidArgument = errors.New("agent: invalid argument")

	// ErrBudgetExceeded reports a run stopped at its step budget. It is a
	// controlled termination, never returned from Run.
	ErrBudgetExceeded = errors.New("agent: step budget exceeded")

	// ErrNoRegistry is returned by a ToolExecutor without a registry.
	ErrNoRegistry = errors.New("agent: tool registry is not configured")
)

// ProviderError wraps a failed LLM completion.
type ProviderError struct {
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("provider: %v", e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a failure of the tool collaborator itself, as
// opposed to a tool reporting an error in its output.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("tool execution: %v", e.Err)
	}
	return fmt.Sprintf("tool execution %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
