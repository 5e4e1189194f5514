// Package agent implements the reason/act engine: a bounded loop driving a
// StepExecutor in blocking (Run) or streaming (RunStream) mode, with result
// extraction, fallback answers and guaranteed cleanup.
//
// An Agent serves exactly one task. Construct a fresh one per prompt.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/fitagent/internal/provider"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flemzord/fitagent/internal/agent"

// CompletionHook receives the prompt and the final answer of a run.
type CompletionHook func(prompt, final string)

// UsageReporter is implemented by executors that track token usage.
type UsageReporter interface {
	Usage() provider.TokenUsage
}

// Option configures an Agent.
type Option func(*Agent)

// WithConfig sets the loop configuration.
func WithConfig(cfg Config) Option {
	return func(a *Agent) { a.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer. The global otel tracer is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(a *Agent) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Agent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithCompletionHook sets the hook called with non-empty final answers.
func WithCompletionHook(h CompletionHook) Option {
	return func(a *Agent) { a.hook = h }
}

// WithCleanup adds a function run once when the run ends, on every path.
func WithCleanup(fn func()) Option {
	return func(a *Agent) {
		if fn != nil {
			a.cleanups = append(a.cleanups, fn)
		}
	}
}

// WithCatalog sets the capability lookup used to classify step results.
// The builtin tool names are used by default.
func WithCatalog(c CapabilityLookup) Option {
	return func(a *Agent) {
		if c != nil {
			a.caps = c
		}
	}
}

// Agent drives one task through a StepExecutor.
type Agent struct {
	step     StepExecutor
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
	caps     CapabilityLookup
	hook     CompletionHook
	cleanups []func()

	sm   *stateMachine
	conv *Conversation
	rt   *Runtime

	hookOnce    sync.Once
	cleanupOnce sync.Once

	mu        sync.Mutex
	session   *Session
	sessionID string
	mode      string
	err       error
	steps     int
}

// New creates an Idle agent bound to step.
func New(step StepExecutor, opts ...Option) *Agent {
	a := &Agent{
		step:     step,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
		recorder: nopRecorder{},
		caps:     builtinCapabilities{},
		sm:       newStateMachine(),
		conv:     &Conversation{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cfg = a.cfg.withDefaults()
	a.rt = &Runtime{
		sm:       a.sm,
		conv:     a.conv,
		logger:   a.logger,
		maxSteps: a.cfg.MaxSteps,
	}
	step.Bind(a.rt)
	return a
}

// State returns the lifecycle state.
func (a *Agent) State() State { return a.sm.current() }

// Err returns why the run did not finish cleanly: ErrBudgetExceeded
// (wrapped) after truncation, or the failure that forced state Error.
func (a *Agent) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Steps returns the number of steps executed so far.
func (a *Agent) Steps() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.steps
}

// Mode returns ModeBlocking or ModeStream once a run has started.
func (a *Agent) Mode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SessionID returns the ID of the streaming session, which outlives the
// session itself. It is empty for blocking runs.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Session returns the streaming session in progress, or nil.
func (a *Agent) Session() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Messages returns a copy of the conversation. Call it only once the run
// has ended.
func (a *Agent) Messages() []provider.LLMMessage { return a.conv.Messages() }

// Usage returns the token usage of the run when the executor tracks it.
func (a *Agent) Usage() provider.TokenUsage {
	if u, ok := a.step.(UsageReporter); ok {
		return u.Usage()
	}
	return provider.TokenUsage{}
}

// Run executes the task on the calling goroutine and returns the step log.
// Only precondition failures are returned as errors; a failure during the
// run yields an apology text and state Error.
func (a *Agent) Run(ctx context.Context, prompt string) (out string, err error) {
	if err := a.begin(prompt); err != nil {
		return "", err
	}
	a.mu.Lock()
	a.mode = ModeBlocking
	a.mu.Unlock()

	start := time.Now()
	a.recorder.RunStarted(ModeBlocking)
	ctx, span := a.startSpan(ctx, ModeBlocking, "")

	defer func() {
		if r := recover(); r != nil {
			failure := fmt.Errorf("panic: %v", r)
			a.logger.Error("run panicked", "panic", r)
			a.abort(failure)
			out = apology(failure)
		}
		a.endSpan(span)
		a.recorder.RunFinished(ModeBlocking, a.sm.current(), a.Steps(), time.Since(start))
		a.cleanup()
	}()

	res, runErr := a.drive(ctx, ModeBlocking, nil, nil)
	if runErr != nil {
		a.logger.Warn("run aborted", "error", runErr)
		a.abort(runErr)
		return apology(runErr), nil
	}

	out = strings.Join(res.lines, "\n")
	a.complete(prompt, out)
	return out, nil
}

// RunStream starts the task on its own goroutine and returns immediately.
// Preconditions are checked before returning. The run is bounded by
// Config.StreamTimeout and by ctx.
func (a *Agent) RunStream(ctx context.Context, prompt string) (*Session, error) {
	if err := a.begin(prompt); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.StreamTimeout)
	deadline, _ := runCtx.Deadline()
	s := newSession(uuid.Must(uuid.NewV7()).String(), deadline, a.cfg.EventBuffer, cancel)

	a.mu.Lock()
	a.session = s
	a.sessionID = s.ID()
	a.mode = ModeStream
	a.mu.Unlock()
	a.rt.emit = func(ev StreamEvent) { s.send(runCtx, ev) }

	go a.stream(runCtx, prompt, s)
	return s, nil
}

func (a *Agent) stream(ctx context.Context, prompt string, s *Session) {
	start := time.Now()
	a.recorder.RunStarted(ModeStream)
	ctx, span := a.startSpan(ctx, ModeStream, s.ID())
	logger := a.logger.With("session", s.ID())

	acc := accumulator{caps: a.caps}
	var (
		terminalSent bool
		timedOut     bool
	)
	terminal := func(ev StreamEvent) {
		terminalSent = true
		s.sendFinal(ev)
	}

	defer func() {
		if r := recover(); r != nil {
			failure := fmt.Errorf("panic: %v", r)
			logger.Error("stream panicked", "panic", r)
			a.abort(failure)
			if !terminalSent {
				terminal(StreamEvent{Type: EventError, Content: failureContent(acc.String(), failure)})
			}
		}
		s.sendFinal(StreamEvent{Type: EventComplete})

		a.mu.Lock()
		a.session = nil
		a.mu.Unlock()

		a.endSpan(span)
		a.recorder.RunFinished(ModeStream, a.sm.current(), a.Steps(), time.Since(start))
		a.cleanup()
		s.end(timedOut)
		s.close()
	}()

	out, err := a.drive(ctx, ModeStream,
		func(step int) {
			s.send(ctx, stepStartEvent(step, a.cfg.MaxSteps))
		},
		func(_ int, result string) {
			if frag, kind := acc.add(result); kind == fragmentReasoning {
				s.send(ctx, thinkingEvent(frag))
			}
		},
	)
	if err != nil {
		a.abort(err)
		if errors.Is(err, context.DeadlineExceeded) {
			timedOut = true
			logger.Warn("stream timed out", "timeout", a.cfg.StreamTimeout, "steps", a.Steps())
			terminal(StreamEvent{Type: EventError, Content: timeoutContent(acc.String(), a.cfg.StreamTimeout)})
			return
		}
		logger.Warn("stream aborted", "error", err)
		terminal(StreamEvent{Type: EventError, Content: failureContent(acc.String(), err)})
		return
	}

	final := resolveFinal(out, acc.String(), a.cfg.MaxSteps, a.caps)
	a.sm.finish()
	terminal(StreamEvent{Type: EventResult, Content: final})
	a.complete(prompt, final)
}

// begin checks the preconditions and moves the agent to Running.
func (a *Agent) begin(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt must not be blank", ErrInvalidArgument)
	}
	if err := a.sm.start(); err != nil {
		return err
	}
	if r, ok := a.step.(Resetter); ok {
		r.Reset()
	}
	a.conv.Append(provider.UserMessage(prompt))
	return nil
}

// drive runs up to MaxSteps steps. It returns an error only when ctx ends
// the run.
func (a *Agent) drive(ctx context.Context, mode string, before func(step int), after func(step int, result string)) (outcome, error) {
	var out outcome

	for i := 1; i <= a.cfg.MaxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		a.rt.step = i
		if before != nil {
			before(i)
		}

		result, acted := a.runStep(ctx, mode, i)
		if !acted {
			a.sm.finish()
		}
		out.last = result
		out.lines = append(out.lines, fmt.Sprintf("Step %d: %s", i, result))

		a.mu.Lock()
		a.steps = i
		a.mu.Unlock()

		if after != nil {
			after(i, result)
		}
		if a.sm.current() != StateRunning {
			return out, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if a.sm.finish() {
		out.exhausted = true
		out.lines = append(out.lines, truncationLine(a.cfg.MaxSteps))
		a.setErr(fmt.Errorf("%w: %d steps", ErrBudgetExceeded, a.cfg.MaxSteps))
		a.logger.Info("step budget exhausted", "max_steps", a.cfg.MaxSteps)
	}
	return out, nil
}

func (a *Agent) runStep(ctx context.Context, mode string, step int) (string, bool) {
	ctx, span := a.tracer.Start(ctx, "agent.step", trace.WithAttributes(attribute.Int("agent.step", step)))
	defer span.End()

	start := time.Now()
	result, acted := runStep(ctx, a.step, a.logger.With("step", step))
	failed := strings.HasPrefix(result, "step failed: ")
	if failed {
		span.SetStatus(codes.Error, result)
	}
	a.recorder.StepCompleted(mode, time.Since(start), failed)
	return result, acted
}

// abort forces state Error and records err.
func (a *Agent) abort(err error) {
	a.sm.fail()
	a.setErr(err)
}

func (a *Agent) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// complete hands a non-empty final answer to the completion hook, once.
func (a *Agent) complete(prompt, final string) {
	if a.hook == nil || strings.TrimSpace(final) == "" {
		return
	}
	a.hookOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("completion hook panicked", "panic", r)
			}
		}()
		a.hook(prompt, final)
	})
}

// cleanup runs the cleanup functions exactly once.
func (a *Agent) cleanup() {
	a.cleanupOnce.Do(func() {
		for _, fn := range a.cleanups {
			func() {
				defer func() {
					if r := recover(); r != nil {
						a.logger.Error("cleanup panicked", "panic", r)
					}
				}()
				fn()
			}()
		}
	})
}

func (a *Agent) startSpan(ctx context.Context, mode, sessionID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.mode", mode),
		attribute.Int("agent.max_steps", a.cfg.MaxSteps),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String("agent.session_id", sessionID))
	}
	return a.tracer.Start(ctx, "agent.run", trace.WithAttributes(attrs...))
}

func (a *Agent) endSpan(span trace.Span) {
	state := a.sm.current()
	span.SetAttributes(
		attribute.String("agent.state", string(state)),
		attribute.Int("agent.steps", a.Steps()),
	)
	if err := a.Err(); err != nil {
		span.RecordError(err)
		if state == StateError {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
