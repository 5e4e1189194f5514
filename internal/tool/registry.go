package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/flemzord/fitagent/internal/provider"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry holds the registered tools. It is the tool catalog handed to the
// model and the lookup the executor dispatches through.
// It is instance-based (not global) for better testability.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]registered
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]registered),
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetLogger configures logging of tool executions.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a tool to the registry after compiling its schema.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	schema, err := compileSchema(name, t.Schema())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = registered{tool: t, schema: schema}
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return reg.tool, nil
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definitions returns the catalog offered to the model, sorted by name.
func (r *Registry) Definitions() []provider.ToolDefinition {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name].tool
		defs = append(defs, provider.ToolDefinition{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Capabilities returns the capability tags of the named tool.
// Unknown tools have no capabilities.
func (r *Registry) Capabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	if !ok {
		return Capabilities{}
	}
	return reg.tool.Capabilities()
}

// ValidateArguments checks args against the named tool's schema.
func (r *Registry) ValidateArguments(name string, args json.RawMessage) error {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := validateArgs(reg.schema, args); err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}
	return nil
}

// Execute looks the tool up, validates the arguments and runs it.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, env ExecutionEnv) (Output, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	logger := r.logger
	r.mu.RUnlock()

	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := validateArgs(reg.schema, args); err != nil {
		return Output{}, fmt.Errorf("tool %s: %w", name, err)
	}

	logger.Debug("tool call", "tool", name, "args", truncateForLog(string(args)))

	start := time.Now()
	out, err := reg.tool.Execute(ctx, args, env)

	logger.Debug("tool result",
		"tool", name,
		"duration", time.Since(start),
		"is_error", out.IsError || err != nil,
		"output", truncateForLog(out.Content),
	)
	return out, err
}

// maxLogDetailLen bounds logged tool arguments and outputs.
const maxLogDetailLen = 2048

// truncateForLog cuts s at a rune boundary no later than maxLogDetailLen.
func truncateForLog(s string) string {
	if len(s) <= maxLogDetailLen {
		return s
	}
	i := maxLogDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
