package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedStep is a StepExecutor driven by closures.
type scriptedStep struct {
	rt    *Runtime
	think func(ctx context.Context, rt *Runtime) (bool, error)
	act   func(ctx context.Context, rt *Runtime) (string, error)

	thinkCalls atomic.Int32
	actCalls   atomic.Int32
}

func (s *scriptedStep) Bind(rt *Runtime) { s.rt = rt }

func (s *scriptedStep) Think(ctx context.Context) (bool, error) {
	s.thinkCalls.Add(1)
	if s.think == nil {
		return true, nil
	}
	return s.think(ctx, s.rt)
}

func (s *scriptedStep) Act(ctx context.Context) (string, error) {
	s.actCalls.Add(1)
	if s.act == nil {
		return "acted", nil
	}
	return s.act(ctx, s.rt)
}

func alwaysThink(v bool) func(context.Context, *Runtime) (bool, error) {
	return func(context.Context, *Runtime) (bool, error) { return v, nil }
}

func actReturning(s string) func(context.Context, *Runtime) (string, error) {
	return func(context.Context, *Runtime) (string, error) { return s, nil }
}

// collect drains a session until its event channel closes.
func collect(t *testing.T, s *Session) []StreamEvent {
	t.Helper()

	var evs []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return evs
			}
			evs = append(evs, ev)
		case <-timeout:
			t.Fatal("timed out waiting for the stream to close")
			return nil
		}
	}
}

func eventsOfType(evs []StreamEvent, typ EventType) []StreamEvent {
	var out []StreamEvent
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func terminalEvent(t *testing.T, evs []StreamEvent) StreamEvent {
	t.Helper()

	var found []StreamEvent
	for _, ev := range evs {
		if ev.IsTerminal() {
			found = append(found, ev)
		}
	}
	if len(found) != 1 {
		t.Fatalf("got %d terminal events, want 1: %+v", len(found), evs)
	}
	return found[0]
}
