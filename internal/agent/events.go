package agent

// EventType identifies the kind of streaming event.
type EventType string

// EventType constants for streaming events.
const (
	EventStepStart    EventType = "step_start"
	EventThinking     EventType = "thinking"
	EventToolStart    EventType = "tool_start"
	EventToolComplete EventType = "tool_complete"
	EventToolError    EventType = "tool_error"
	EventResult       EventType = "result"
	EventError        EventType = "error"
	EventComplete     EventType = "complete"
)

// Tool event statuses.
const (
	ToolStatusRunning = "running"
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// StreamEvent is one event of a streaming run. Only Type is mandatory;
// absent fields are omitted on the wire.
type StreamEvent struct {
	Type        EventType `json:"type"`
	Content     string    `json:"content,omitempty"`
	ToolName    string    `json:"toolName,omitempty"`
	Status      string    `json:"status,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Arguments   string    `json:"arguments,omitempty"`
	Result      string    `json:"result,omitempty"`
	StepNumber  *int      `json:"stepNumber,omitempty"`
	MaxSteps    *int      `json:"maxSteps,omitempty"`
	Collapsible *bool     `json:"collapsible,omitempty"`
}

// IsTerminal reports whether the event carries the final content of a run.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventResult || e.Type == EventError
}

func stepStartEvent(step, maxSteps int) StreamEvent {
	return StreamEvent{Type: EventStepStart, StepNumber: &step, MaxSteps: &maxSteps}
}

func thinkingEvent(content string) StreamEvent {
	return StreamEvent{Type: EventThinking, Content: content}
}

func toolStartEvent(step int, name, args string) StreamEvent {
	return StreamEvent{
		Type:       EventToolStart,
		ToolName:   name,
		Status:     ToolStatusRunning,
		Arguments:  args,
		StepNumber: &step,
	}
}

func toolDoneEvent(step int, name, payload string, failed bool) StreamEvent {
	collapsible := true
	ev := StreamEvent{
		Type:        EventToolComplete,
		ToolName:    name,
		Status:      ToolStatusSuccess,
		Summary:     summarize(payload),
		Result:      payload,
		StepNumber:  &step,
		Collapsible: &collapsible,
	}
	if failed {
		ev.Type = EventToolError
		ev.Status = ToolStatusError
	}
	return ev
}

// maxSummaryRunes bounds the summary of a tool event.
const maxSummaryRunes = 120

func summarize(s string) string {
	r := []rune(s)
	if len(r) <= maxSummaryRunes {
		return s
	}
	return string(r[:maxSummaryRunes]) + "..."
}
