package provider

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

func newTestTracker(cfg HealthConfig) (*healthTracker, *fakeClock) {
	h := newHealthTracker(cfg)
	clock := &fakeClock{current: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
	h.now = clock.Now
	return h, clock
}

func TestHealthTracker_StartsHealthy(t *testing.T) {
	t.Parallel()

	h, _ := newTestTracker(HealthConfig{})
	if !h.IsAvailable() {
		t.Error("new tracker should be available")
	}
	if snap := h.snapshot(); snap.state != stateHealthy {
		t.Errorf("state = %s, want healthy", snap.state)
	}
	if h.ShouldHealthCheck() {
		t.Error("healthy tracker should not need a probe")
	}
}

func TestHealthTracker_CooldownExpires(t *testing.T) {
	t.Parallel()

	h, clock := newTestTracker(HealthConfig{InitialBackoff: time.Second})
	h.RecordFailure(fmt.Errorf("openai: %w", ErrProviderDown))

	snap := h.snapshot()
	if snap.state != stateCooldown {
		t.Fatalf("state = %s, want cooldown", snap.state)
	}
	if snap.reason != "unavailable" {
		t.Errorf("reason = %q, want unavailable", snap.reason)
	}
	if want := clock.Now().Add(time.Second); !snap.retryAt.Equal(want) {
		t.Errorf("retryAt = %v, want %v", snap.retryAt, want)
	}
	if h.IsAvailable() {
		t.Error("should not be available during cooldown")
	}

	clock.Advance(time.Second)
	if !h.IsAvailable() {
		t.Error("should be available at exact expiry")
	}
	if !h.ShouldHealthCheck() {
		t.Error("expired cooldown should need a probe")
	}
}

func TestHealthTracker_BackoffDoublesAndCaps(t *testing.T) {
	t.Parallel()

	h, _ := newTestTracker(HealthConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		MaxFailures:    10,
	})

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		h.RecordFailure(ErrRateLimit)
		if got := h.snapshot().backoff; got != w {
			t.Fatalf("failure %d: backoff = %v, want %v", i+1, got, w)
		}
	}
}

func TestHealthTracker_DeadAndRevived(t *testing.T) {
	t.Parallel()

	h, _ := newTestTracker(HealthConfig{MaxFailures: 2})

	var transitions []healthState
	var reasons []string
	h.onStateChange = func(_, to healthState, snap healthSnapshot) {
		transitions = append(transitions, to)
		reasons = append(reasons, snap.reason)
	}

	h.RecordFailure(ErrRateLimit)
	h.RecordFailure(ErrProviderDown)
	snap := h.snapshot()
	if snap.state != stateDead || !snap.retryAt.IsZero() {
		t.Fatalf("snapshot = %+v, want dead without retry time", snap)
	}
	if h.IsAvailable() {
		t.Error("dead provider must not be available")
	}

	h.RecordSuccess()
	snap = h.snapshot()
	if snap.state != stateHealthy || snap.failures != 0 || snap.backoff != 0 || snap.reason != "" {
		t.Fatalf("after success: %+v", snap)
	}
	if want := []string{"rate_limit", "unavailable", ""}; fmt.Sprint(reasons) != fmt.Sprint(want) {
		t.Errorf("reasons = %q, want %q", reasons, want)
	}

	want := []healthState{stateCooldown, stateDead, stateHealthy}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestHealthConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := HealthConfig{CheckInterval: -time.Second}.withDefaults()
	if cfg.InitialBackoff != defaultInitialBackoff {
		t.Errorf("InitialBackoff = %v", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != defaultMaxBackoff {
		t.Errorf("MaxBackoff = %v", cfg.MaxBackoff)
	}
	if cfg.MaxFailures != defaultMaxFailures {
		t.Errorf("MaxFailures = %d", cfg.MaxFailures)
	}
	if cfg.CheckInterval != defaultCheckInterval {
		t.Errorf("CheckInterval = %v", cfg.CheckInterval)
	}
}

func TestMinHealthCheckInterval(t *testing.T) {
	t.Parallel()

	got := minHealthCheckInterval([]chainEntry{
		{ChainEntry: ChainEntry{Health: HealthConfig{CheckInterval: 30 * time.Second}}},
		{ChainEntry: ChainEntry{Health: HealthConfig{CheckInterval: 20 * time.Second}}},
		{ChainEntry: ChainEntry{Health: HealthConfig{}}},
	})
	if got != 10*time.Second {
		t.Fatalf("interval = %v, want 10s", got)
	}
	if got := minHealthCheckInterval(nil); got != defaultCheckInterval {
		t.Fatalf("empty interval = %v, want %v", got, defaultCheckInterval)
	}
}
