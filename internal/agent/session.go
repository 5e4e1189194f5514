package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// teardownGrace bounds how long the terminal events wait for a consumer
// once the run itself has ended.
const teardownGrace = time.Second

// Session is the caller's handle on a streaming run. The run goroutine owns
// the send side of Events and closes it after the final EventComplete.
//
// The consumer must drain Events or call Cancel. A consumer that stops
// reading holds the run only until its deadline; after that, events that do
// not fit the buffer are dropped and the session is torn down.
type Session struct {
	id       string
	events   chan StreamEvent
	deadline time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	abandon     chan struct{}
	abandonOnce sync.Once

	// stalled is set once a send gave up on a consumer that stopped reading.
	stalled atomic.Bool

	mu           sync.Mutex
	ended        bool
	timedOut     bool
	onTimeout    []func()
	onCompletion []func()
}

func newSession(id string, deadline time.Time, buffer int, cancel context.CancelFunc) *Session {
	return &Session{
		id:       id,
		events:   make(chan StreamEvent, buffer),
		deadline: deadline,
		cancel:   cancel,
		done:     make(chan struct{}),
		abandon:  make(chan struct{}),
	}
}

// ID returns the run identifier.
func (s *Session) ID() string { return s.id }

// Events returns the ordered event stream.
func (s *Session) Events() <-chan StreamEvent { return s.events }

// Deadline returns the instant the run times out.
func (s *Session) Deadline() time.Time { return s.deadline }

// Done is closed once the run is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel stops the run and releases the consumer from reading further
// events. It is safe to call more than once.
func (s *Session) Cancel() {
	s.abandonOnce.Do(func() { close(s.abandon) })
	s.cancel()
}

// OnTimeout registers fn to run if the session times out. Registering after
// the timeout runs fn immediately.
func (s *Session) OnTimeout(fn func()) {
	s.mu.Lock()
	if !s.ended {
		s.onTimeout = append(s.onTimeout, fn)
		s.mu.Unlock()
		return
	}
	timedOut := s.timedOut
	s.mu.Unlock()
	if timedOut {
		fn()
	}
}

// OnCompletion registers fn to run when the session ends without timing
// out. Registering after completion runs fn immediately.
func (s *Session) OnCompletion(fn func()) {
	s.mu.Lock()
	if !s.ended {
		s.onCompletion = append(s.onCompletion, fn)
		s.mu.Unlock()
		return
	}
	timedOut := s.timedOut
	s.mu.Unlock()
	if !timedOut {
		fn()
	}
}

// send delivers ev unless the consumer abandoned the session. It waits for
// buffer space no longer than ctx allows; once a wait has expired, later
// sends only succeed if the buffer has room.
func (s *Session) send(ctx context.Context, ev StreamEvent) bool {
	select {
	case <-s.abandon:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
	}
	if s.stalled.Load() {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-s.abandon:
		return false
	case <-ctx.Done():
		s.stalled.Store(true)
		return false
	}
}

// sendFinal delivers a terminal event, waiting at most teardownGrace.
func (s *Session) sendFinal(ev StreamEvent) bool {
	ctx, cancel := context.WithTimeout(context.Background(), teardownGrace)
	defer cancel()
	return s.send(ctx, ev)
}

// end runs the registered callbacks of the matching kind exactly once.
func (s *Session) end(timedOut bool) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.timedOut = timedOut
	callbacks := s.onCompletion
	if timedOut {
		callbacks = s.onTimeout
	}
	s.onTimeout, s.onCompletion = nil, nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// close tears the session down. Only the run goroutine calls it.
func (s *Session) close() {
	s.cancel()
	close(s.events)
	close(s.done)
}
