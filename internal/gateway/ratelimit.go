package gateway

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter enforces a per-client sliding window on run requests.
type rateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	limit     int
	clients   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		window:  window,
		limit:   limit,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// allow records an event for key and reports whether it fits the window.
// When it does not, the returned duration is how long until a slot frees.
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	events := evict(rl.clients[key], now.Add(-rl.window))

	if len(events) >= rl.limit {
		rl.clients[key] = events
		return false, events[0].Add(rl.window).Sub(now)
	}

	rl.clients[key] = append(events, now)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}
	return true, 0
}

// sweep drops clients whose windows are empty so idle keys do not pile up.
// It runs at most once per window.
func (rl *rateLimiter) sweep(now time.Time) {
	rl.lastSweep = now
	cutoff := now.Add(-rl.window)
	for key, events := range rl.clients {
		if len(events) > 0 && events[len(events)-1].Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// evict removes events older than cutoff. Events are chronologically ordered.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}

// middleware rejects requests over the limit with 429 and a Retry-After hint.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(clientKey(r))
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
