package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/fitagent/internal/provider"
	"github.com/flemzord/fitagent/internal/tool"
	"github.com/google/uuid"
)

// DefaultFallbackPrompt asks the model for a direct answer when the tool
// chain ended without usable content. {question} is replaced with the
// first user message.
const DefaultFallbackPrompt = `Answer the following question directly from your own knowledge.
Give a complete, practical answer. Do not mention tools, tool failures or missing data.

Question: {question}`

// errNoContentArgument reports persist-content arguments without content.
var errNoContentArgument = errors.New("no content argument")

// Catalog is the tool catalog as seen by the tool-calling step.
// *tool.Registry implements it.
type Catalog interface {
	Definitions() []provider.ToolDefinition
	Capabilities(name string) tool.Capabilities
	ValidateArguments(name string, args json.RawMessage) error
}

// StepConfig configures a ToolCallStep.
type StepConfig struct {
	// SystemPrompt is sent as the first message of every completion.
	SystemPrompt string

	// NextStepPrompt is appended to each think request as a trailing user
	// message. It is never stored in the conversation.
	NextStepPrompt string

	// FallbackPrompt overrides DefaultFallbackPrompt.
	FallbackPrompt string

	// MaxTokens and Temperature are forwarded to every completion.
	MaxTokens   int
	Temperature *float64

	// RepeatThreshold overrides DefaultRepeatThreshold.
	RepeatThreshold int
}

// ToolCallStep is the StepExecutor that lets the model pick tools from a
// catalog and runs them through a ToolInvoker.
type ToolCallStep struct {
	llm     provider.Provider
	invoker ToolInvoker
	catalog Catalog
	cfg     StepConfig

	rt       *Runtime
	pending  *provider.LLMMessage
	captured string
	usage    usageTracker
	repeats  *repeatDetector
}

// NewToolCallStep creates a tool-calling step.
func NewToolCallStep(llm provider.Provider, invoker ToolInvoker, catalog Catalog, cfg StepConfig) *ToolCallStep {
	if cfg.FallbackPrompt == "" {
		cfg.FallbackPrompt = DefaultFallbackPrompt
	}
	return &ToolCallStep{
		llm:     llm,
		invoker: invoker,
		catalog: catalog,
		cfg:     cfg,
		repeats: newRepeatDetector(cfg.RepeatThreshold),
	}
}

// Bind implements StepExecutor.
func (s *ToolCallStep) Bind(rt *Runtime) { s.rt = rt }

// Reset implements Resetter.
func (s *ToolCallStep) Reset() {
	s.pending = nil
	s.captured = ""
	s.usage = usageTracker{}
	s.repeats.reset()
}

// Usage returns the token usage accumulated during the run.
func (s *ToolCallStep) Usage() provider.TokenUsage { return s.usage.total() }

// Think implements StepExecutor.
func (s *ToolCallStep) Think(ctx context.Context) (bool, error) {
	s.pending = nil
	conv := s.rt.Conversation()

	msgs := conv.Messages()
	if s.cfg.NextStepPrompt != "" {
		msgs = append(msgs, provider.UserMessage(s.cfg.NextStepPrompt))
	}

	resp, err := s.llm.Complete(ctx, s.request(msgs, s.catalog.Definitions()))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		perr := &ProviderError{Model: s.llm.ModelName(), Err: err}
		s.rt.Logger().Warn("completion failed", "reason", provider.Reason(err), "error", perr)
		conv.Append(provider.AssistantMessage("Error encountered while processing: "+perr.Error(), nil))
		s.rt.Finish()
		return false, nil
	}
	s.usage.add(resp.Usage)

	if len(resp.ToolCalls) == 0 {
		conv.Append(provider.AssistantMessage(resp.Content, nil))
		s.rt.Finish()
		return false, nil
	}

	calls := make([]provider.ToolCall, len(resp.ToolCalls))
	for i, c := range resp.ToolCalls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		calls[i] = c
	}
	msg := provider.AssistantMessage(resp.Content, calls)
	s.pending = &msg

	s.rt.Logger().Debug("tool calls requested", "step", s.rt.Step(), "count", len(calls))
	return true, nil
}

// ThinkResult implements ThinkResulter: the model's direct answer, when
// there is one.
func (s *ToolCallStep) ThinkResult() string {
	if last, ok := s.rt.Conversation().Last(); ok &&
		last.Role == provider.MessageRoleAssistant && strings.TrimSpace(last.Content) != "" {
		return last.Content
	}
	return DefaultThinkResult
}

// Act implements StepExecutor.
func (s *ToolCallStep) Act(ctx context.Context) (string, error) {
	if s.pending == nil || len(s.pending.ToolCalls) == 0 {
		return NoToolCallsResult, nil
	}
	request := *s.pending
	s.pending = nil

	conv := s.rt.Conversation()
	logger := s.rt.Logger()

	for _, call := range request.ToolCalls {
		if s.catalog.Capabilities(call.Name).PersistsContent {
			s.capture(call)
		}
		if s.repeats.record(call.Name, call.Arguments) {
			logger.Warn("tool call repeated", "tool", call.Name, "threshold", s.repeats.threshold)
		}
		s.rt.Emit(toolStartEvent(s.rt.Step(), call.Name, string(call.Arguments)))
	}

	before := conv.Len()
	next, err := s.invoker.Invoke(ctx, conv.Messages(), request)
	if err != nil {
		return "", err
	}
	if err := conv.Replace(next); err != nil {
		return "", err
	}

	var (
		lines    []string
		terminal bool
	)
	for _, m := range next[before:] {
		if m.Role != provider.MessageRoleTool {
			continue
		}
		lines = append(lines, fmt.Sprintf("tool %s returned: %s", m.Name, m.Content))
		s.rt.Emit(toolDoneEvent(s.rt.Step(), m.Name, m.Content, m.IsError))
		if s.catalog.Capabilities(m.Name).IsTerminal {
			terminal = true
		}
	}
	report := strings.Join(lines, "\n")

	if !terminal {
		return report, nil
	}
	s.rt.Finish()
	return s.preferred(ctx, request.Content, report), nil
}

// preferred picks the final answer once the terminal tool fired: the
// captured payload, then the last think text, then a tool-free fallback
// answer, then the raw report.
func (s *ToolCallStep) preferred(ctx context.Context, thinkText, report string) string {
	if s.captured != "" {
		return s.captured
	}
	if strings.TrimSpace(thinkText) != "" {
		return thinkText
	}
	if answer, ok := s.fallback(ctx); ok {
		return answer
	}
	return report
}

// fallback asks the model to answer the original question without tools.
func (s *ToolCallStep) fallback(ctx context.Context) (string, bool) {
	question, ok := s.rt.Conversation().FirstUser()
	if !ok {
		return "", false
	}

	prompt := strings.ReplaceAll(s.cfg.FallbackPrompt, "{question}", question)
	resp, err := s.llm.Complete(ctx, s.request([]provider.LLMMessage{provider.UserMessage(prompt)}, nil))
	if err != nil {
		s.rt.Logger().Warn("fallback completion failed", "error", err)
		return "", false
	}
	s.usage.add(resp.Usage)

	if strings.TrimSpace(resp.Content) == "" {
		return "", false
	}
	return resp.Content, true
}

func (s *ToolCallStep) request(msgs []provider.LLMMessage, tools []provider.ToolDefinition) provider.CompletionRequest {
	if s.cfg.SystemPrompt != "" {
		msgs = append([]provider.LLMMessage{provider.SystemMessage(s.cfg.SystemPrompt)}, msgs...)
	}
	return provider.CompletionRequest{
		Messages:    msgs,
		Tools:       tools,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
}

// capture stores the content argument of a persist-content call. Malformed
// arguments are logged and ignored.
func (s *ToolCallStep) capture(call provider.ToolCall) {
	content, err := s.extractContent(call)
	if err != nil {
		s.rt.Logger().Warn("ignoring persist-content arguments", "tool", call.Name, "error", err)
		return
	}
	if content != "" {
		s.captured = content
	}
}

func (s *ToolCallStep) extractContent(call provider.ToolCall) (string, error) {
	raw := bytes.TrimSpace(call.Arguments)

	// Some models send the arguments object as a JSON-encoded string.
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return "", err
		}
		raw = []byte(inner)
	}

	if err := s.catalog.ValidateArguments(call.Name, raw); err != nil {
		return "", err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	value, ok := fields[tool.ContentArgument]
	if !ok {
		return "", errNoContentArgument
	}
	var content string
	if err := json.Unmarshal(value, &content); err != nil {
		return "", fmt.Errorf("%s is not a string: %w", tool.ContentArgument, err)
	}
	return content, nil
}
