package agent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/flemzord/fitagent/internal/provider"
)

var errTest = errors.New("test failure")

func TestStateMachine_Transitions(t *testing.T) {
	t.Parallel()

	m := newStateMachine()
	if m.current() != StateIdle {
		t.Fatalf("initial = %s", m.current())
	}
	if m.finish() || m.fail() {
		t.Error("terminal transition allowed from idle")
	}
	if err := m.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.start(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second start err = %v", err)
	}
	if !m.finish() {
		t.Fatal("finish from running refused")
	}
	if m.finish() || m.fail() {
		t.Error("terminal state left")
	}
	if m.current() != StateFinished {
		t.Errorf("state = %s", m.current())
	}
}

func TestState_IsTerminal(t *testing.T) {
	t.Parallel()

	for s, want := range map[State]bool{
		StateIdle: false, StateRunning: false, StateFinished: true, StateError: true,
	} {
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v", s, !want)
		}
	}
}

func TestConversation(t *testing.T) {
	t.Parallel()

	var c Conversation
	if _, ok := c.FirstUser(); ok {
		t.Error("FirstUser on empty conversation")
	}
	c.Append(provider.AssistantMessage("hello", nil), provider.UserMessage("q1"), provider.UserMessage("q2"))

	if q, _ := c.FirstUser(); q != "q1" {
		t.Errorf("FirstUser = %q", q)
	}

	msgs := c.Messages()
	msgs[0].Content = "mutated"
	if m, _ := c.Last(); m.Content != "q2" {
		t.Errorf("Last = %+v", m)
	}
	if c.Messages()[0].Content != "hello" {
		t.Error("Messages returned an alias")
	}

	if err := c.Replace(msgs[:1]); !errors.Is(err, errConversationShrunk) {
		t.Errorf("Replace shorter err = %v", err)
	}
	if err := c.Replace(append(c.Messages(), provider.UserMessage("q3"))); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if c.Len() != 4 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestStreamEvent_OmitsAbsentFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ev   StreamEvent
		want string
	}{
		{StreamEvent{Type: EventComplete}, `{"type":"complete"}`},
		{stepStartEvent(1, 3), `{"type":"step_start","stepNumber":1,"maxSteps":3}`},
		{StreamEvent{Type: EventResult, Content: "ok"}, `{"type":"result","content":"ok"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.ev)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("json = %s, want %s", data, tt.want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	if cfg.MaxSteps != DefaultMaxSteps || cfg.StreamTimeout != DefaultStreamTimeout || cfg.EventBuffer != DefaultEventBuffer {
		t.Errorf("defaults = %+v", cfg)
	}
	cfg = Config{MaxSteps: 2}.withDefaults()
	if cfg.MaxSteps != 2 {
		t.Errorf("MaxSteps = %d", cfg.MaxSteps)
	}
}

func TestRepeatDetector(t *testing.T) {
	t.Parallel()

	d := newRepeatDetector(2)
	if d.record("a", json.RawMessage(`{"x":1,"y":2}`)) {
		t.Error("first call flagged")
	}
	if !d.record("a", json.RawMessage(`{"y":2,"x":1}`)) {
		t.Error("reordered duplicate not flagged")
	}
	d.reset()
	if d.record("a", json.RawMessage(`{"x":1,"y":2}`)) {
		t.Error("flagged after reset")
	}
	if normalizeArgs(json.RawMessage(`not json`)) != "not json" {
		t.Error("invalid JSON not passed through")
	}
}
