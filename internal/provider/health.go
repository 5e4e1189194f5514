package provider

import (
	"sync"
	"time"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = time.Minute
	defaultMaxFailures    = 5
	defaultCheckInterval  = 10 * time.Second
)

type healthState int

const (
	stateHealthy  healthState = iota
	stateCooldown             // transient failure, backing off
	stateDead                 // too many consecutive failures
)

func (s healthState) String() string {
	switch s {
	case stateHealthy:
		return "healthy"
	case stateCooldown:
		return "cooldown"
	case stateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// HealthConfig controls health tracking for one chain entry.
// Zero values select the defaults.
type HealthConfig struct {
	// InitialBackoff is the cooldown after the first failure. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubling backoff. Default: 1m.
	MaxBackoff time.Duration

	// MaxFailures is how many consecutive failures mark the entry dead. Default: 5.
	MaxFailures int

	// CheckInterval is how often dead or expired entries are probed. Default: 10s.
	CheckInterval time.Duration
}

func (c HealthConfig) checkIntervalOrDefault() time.Duration {
	if c.CheckInterval <= 0 {
		return defaultCheckInterval
	}
	return c.CheckInterval
}

func (c HealthConfig) withDefaults() HealthConfig {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = defaultMaxFailures
	}
	c.CheckInterval = c.checkIntervalOrDefault()
	return c
}

// healthTracker is a small circuit breaker for one provider. It also keeps
// the reason of the last failure so health endpoints can say why an entry
// is out of rotation.
type healthTracker struct {
	cfg HealthConfig

	// onStateChange is invoked outside the lock on every transition.
	onStateChange func(from, to healthState, snap healthSnapshot)

	mu       sync.Mutex
	state    healthState
	failures int
	backoff  time.Duration
	retryAt  time.Time
	reason   string

	now func() time.Time
}

// healthSnapshot is a consistent copy of the tracker fields. retryAt is
// zero unless the entry is cooling down.
type healthSnapshot struct {
	state    healthState
	failures int
	backoff  time.Duration
	retryAt  time.Time
	reason   string
}

func newHealthTracker(cfg HealthConfig) *healthTracker {
	return &healthTracker{cfg: cfg.withDefaults(), now: time.Now}
}

// IsAvailable reports whether the provider may receive requests.
func (h *healthTracker) IsAvailable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateHealthy || h.cooldownOverLocked()
}

// ShouldHealthCheck is true for dead entries and expired cooldowns.
func (h *healthTracker) ShouldHealthCheck() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateDead || h.cooldownOverLocked()
}

func (h *healthTracker) cooldownOverLocked() bool {
	return h.state == stateCooldown && !h.now().Before(h.retryAt)
}

// RecordSuccess resets the tracker to healthy.
func (h *healthTracker) RecordSuccess() {
	h.update(func() {
		h.state = stateHealthy
		h.failures = 0
		h.backoff = 0
		h.retryAt = time.Time{}
		h.reason = ""
	})
}

// RecordFailure moves the tracker to cooldown with a doubled backoff, or
// to dead once MaxFailures consecutive failures are reached.
func (h *healthTracker) RecordFailure(err error) {
	h.update(func() {
		h.failures++
		h.reason = Reason(err)
		if h.failures >= h.cfg.MaxFailures {
			h.state = stateDead
			h.retryAt = time.Time{}
			return
		}
		h.state = stateCooldown
		h.backoff = min(max(h.backoff*2, h.cfg.InitialBackoff), h.cfg.MaxBackoff)
		h.retryAt = h.now().Add(h.backoff)
	})
}

func (h *healthTracker) snapshot() healthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *healthTracker) snapshotLocked() healthSnapshot {
	return healthSnapshot{
		state:    h.state,
		failures: h.failures,
		backoff:  h.backoff,
		retryAt:  h.retryAt,
		reason:   h.reason,
	}
}

// update applies fn under the lock and reports a state change, if any,
// after releasing it.
func (h *healthTracker) update(fn func()) {
	h.mu.Lock()
	prev := h.state
	fn()
	snap := h.snapshotLocked()
	h.mu.Unlock()

	if prev != snap.state && h.onStateChange != nil {
		h.onStateChange(prev, snap.state, snap)
	}
}
