package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Canned step results.
const (
	DefaultThinkResult = "Thinking complete - no action needed"
	NoToolCallsResult  = "No tool calls to execute"
)

// StepExecutor is one reason/act strategy. The agent binds it to the run's
// Runtime once, then calls Think and, when Think asks for it, Act on every
// step.
type StepExecutor interface {
	// Bind hands the executor the runtime of the agent driving it.
	Bind(rt *Runtime)

	// Think decides whether an action is required. It may mutate the
	// conversation and finish the run.
	Think(ctx context.Context) (bool, error)

	// Act performs the decided action and returns its outcome as text.
	Act(ctx context.Context) (string, error)
}

// ThinkResulter overrides the step result reported when Think decides no
// action is needed.
type ThinkResulter interface {
	ThinkResult() string
}

// Resetter clears per-run executor state when a run begins.
type Resetter interface {
	Reset()
}

// Runtime is the part of an agent a StepExecutor may touch: its lifecycle
// state, its conversation and its event sink.
type Runtime struct {
	sm       *stateMachine
	conv     *Conversation
	logger   *slog.Logger
	emit     func(StreamEvent)
	step     int
	maxSteps int
}

// State returns the current lifecycle state.
func (r *Runtime) State() State { return r.sm.current() }

// Finish marks the run Finished. It is a no-op once the run is terminal.
func (r *Runtime) Finish() { r.sm.finish() }

// Conversation returns the run's message log.
func (r *Runtime) Conversation() *Conversation { return r.conv }

// Logger returns the agent logger.
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Step returns the 1-based number of the step in progress.
func (r *Runtime) Step() int { return r.step }

// MaxSteps returns the step budget.
func (r *Runtime) MaxSteps() int { return r.maxSteps }

// Emit publishes an event to the streaming session. Blocking runs have no
// session and drop events.
func (r *Runtime) Emit(ev StreamEvent) {
	if r.emit != nil {
		r.emit(ev)
	}
}

// runStep executes think then, if needed, act. Errors and panics are
// absorbed into a "step failed" result so one bad step never aborts the
// loop. acted is false only when Think completed and declined to act.
func runStep(ctx context.Context, exec StepExecutor, logger *slog.Logger) (result string, acted bool) {
	acted = true
	defer func() {
		if r := recover(); r != nil {
			logger.Error("step panicked", "panic", r)
			result = stepFailed(fmt.Errorf("panic: %v", r))
			acted = true
		}
	}()

	act, err := exec.Think(ctx)
	if err != nil {
		logger.Warn("think failed", "error", err)
		return stepFailed(err), true
	}
	if !act {
		if tr, ok := exec.(ThinkResulter); ok {
			return tr.ThinkResult(), false
		}
		return DefaultThinkResult, false
	}

	res, err := exec.Act(ctx)
	if err != nil {
		logger.Warn("act failed", "error", err)
		return stepFailed(err), true
	}
	return res, true
}

func stepFailed(err error) string {
	return "step failed: " + err.Error()
}
