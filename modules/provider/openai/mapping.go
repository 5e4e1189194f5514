package openai

import (
	"encoding/json"

	"github.com/tmc/langchaingo/llms"

	"github.com/flemzord/fitagent/internal/provider"
)

// toMessages converts conversation messages to langchaingo content.
func toMessages(msgs []provider.LLMMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.MessageRoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))

		case provider.MessageRoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextPart(m.Content))
			}
			for _, tc := range m.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: argumentsString(tc.Arguments),
					},
				})
			}
			if len(mc.Parts) == 0 {
				mc.Parts = []llms.ContentPart{llms.TextPart("")}
			}
			out = append(out, mc)

		case provider.MessageRoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolID,
					Name:       m.Name,
					Content:    m.Content,
				}},
			})

		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		}
	}
	return out
}

// toTools converts tool definitions to langchaingo function tools.
func toTools(defs []provider.ToolDefinition) []llms.Tool {
	out := make([]llms.Tool, len(defs))
	for i, d := range defs {
		var params any
		if len(d.Parameters) > 0 {
			params = d.Parameters
		}
		out[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// fromResponse converts a langchaingo response to a CompletionResponse.
// Only the first choice is used.
func fromResponse(resp *llms.ContentResponse) provider.CompletionResponse {
	var cr provider.CompletionResponse
	if resp == nil || len(resp.Choices) == 0 {
		return cr
	}

	choice := resp.Choices[0]
	cr.Content = choice.Content
	cr.FinishReason = mapFinishReason(choice.StopReason)
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		cr.ToolCalls = append(cr.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		})
	}
	cr.Usage = provider.TokenUsage{
		PromptTokens:     intInfo(choice.GenerationInfo, "PromptTokens"),
		CompletionTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
		TotalTokens:      intInfo(choice.GenerationInfo, "TotalTokens"),
	}
	return cr
}

// mapFinishReason converts an OpenAI finish_reason to a provider FinishReason.
func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "stop":
		return provider.FinishReasonStop
	case "length":
		return provider.FinishReasonLength
	case "tool_calls", "function_call":
		return provider.FinishReasonToolUse
	default:
		return provider.FinishReason(reason)
	}
}

func argumentsString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
