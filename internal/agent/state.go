package agent

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of an Agent.
type State string

// State constants. An agent starts Idle, moves to Running once and ends in
// exactly one terminal state.
const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateError    State = "error"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateFinished || s == StateError
}

// stateMachine guards the Idle→Running→{Finished,Error} transitions.
type stateMachine struct {
	mu    sync.Mutex
	state State
}

func newStateMachine() *stateMachine {
	return &stateMachine{state: StateIdle}
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// start moves Idle to Running. Any other starting state is rejected and
// left untouched.
func (m *stateMachine) start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, m.state)
	}
	m.state = StateRunning
	return nil
}

// finish moves Running to Finished and reports whether it did.
func (m *stateMachine) finish() bool {
	return m.end(StateFinished)
}

// fail moves Running to Error and reports whether it did.
func (m *stateMachine) fail() bool {
	return m.end(StateError)
}

func (m *stateMachine) end(to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning {
		return false
	}
	m.state = to
	return true
}
