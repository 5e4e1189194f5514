package provider

import "encoding/json"

// Role describes the position a provider holds in a Chain.
type Role string

// Role constants for chain configuration.
const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
)

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants for conversation messages.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants for model completion termination.
const (
	FinishReasonStop    FinishReason = "stop"
	FinishReasonLength  FinishReason = "length"
	FinishReasonToolUse FinishReason = "tool_use"
)

// LLMMessage is one entry of a conversation.
//
// The role selects which fields are meaningful: user messages carry Content;
// assistant messages carry Content and optionally ToolCalls; tool messages
// carry the responding tool in Name, the originating call in ToolID and the
// payload in Content.
type LLMMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Name      string      `json:"name,omitempty"`
	ToolID    string      `json:"tool_id,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	IsError   bool        `json:"is_error,omitempty"`
}

// UserMessage returns a user message with the given text.
func UserMessage(text string) LLMMessage {
	return LLMMessage{Role: MessageRoleUser, Content: text}
}

// SystemMessage returns a system message with the given text.
func SystemMessage(text string) LLMMessage {
	return LLMMessage{Role: MessageRoleSystem, Content: text}
}

// AssistantMessage returns an assistant message, optionally requesting tool calls.
func AssistantMessage(text string, calls []ToolCall) LLMMessage {
	return LLMMessage{Role: MessageRoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage returns the response of tool name to the call identified by callID.
func ToolMessage(callID, name, payload string, isError bool) LLMMessage {
	return LLMMessage{
		Role:    MessageRoleTool,
		Content: payload,
		Name:    name,
		ToolID:  callID,
		IsError: isError,
	}
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// CompletionRequest is the input to a Provider.Complete call.
// A system prompt, when present, is the first message with MessageRoleSystem.
type CompletionRequest struct {
	Messages    []LLMMessage     `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

// CompletionResponse is the output of a Provider.Complete call.
type CompletionResponse struct {
	Content      string       `json:"content"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}
