// Package tool defines the tool contract, the capability tags the agent
// engine keys its special cases on, and the registry that forms the tool
// catalog offered to the model.
package tool

import (
	"context"
	"encoding/json"
)

// ContentArgument is the argument field that carries the payload of a
// tool tagged PersistsContent.
const ContentArgument = "content"

// Capabilities tags a tool with the roles the agent loop cares about.
// Special handling is driven by these tags, never by the tool's name.
type Capabilities struct {
	// IsTerminal marks the tool whose invocation signals task completion.
	IsTerminal bool

	// PersistsContent marks a tool whose ContentArgument is cached as the
	// preferred final answer of the run.
	PersistsContent bool

	// ReadsContent marks a tool whose output is document text worth keeping
	// as an excerpt in streamed answers.
	ReadsContent bool
}

// Tool is the interface that all fitagent tools implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	// An empty schema disables argument validation.
	Schema() json.RawMessage

	// Capabilities returns the capability tags of the tool.
	Capabilities() Capabilities

	// Execute runs the tool with the given arguments and environment.
	Execute(ctx context.Context, args json.RawMessage, env ExecutionEnv) (Output, error)
}

// ExecutionEnv provides the runtime environment for tool execution.
type ExecutionEnv struct {
	// Workspace is the directory tools may read from and write to.
	Workspace string
}

// Output is the result of a tool execution.
type Output struct {
	// Content is the output text from the tool.
	Content string

	// IsError indicates whether the output represents an error condition.
	IsError bool
}
