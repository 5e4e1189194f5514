package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i := range 2 {
		if ok, _ := rl.allow("a"); !ok {
			t.Fatalf("event %d rejected", i)
		}
	}
	ok, wait := rl.allow("a")
	if ok {
		t.Fatal("third event within window was allowed")
	}
	if wait != time.Minute {
		t.Errorf("wait = %v, want 1m", wait)
	}
	if ok, _ := rl.allow("b"); !ok {
		t.Error("other client should have its own window")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := rl.allow("a"); !ok {
		t.Error("event after window expiry rejected")
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.allow("idle")
	now = now.Add(2 * time.Minute)
	rl.allow("active")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["idle"]; ok {
		t.Error("idle client was not swept")
	}
	if len(rl.clients) != 1 {
		t.Errorf("clients = %d, want 1", len(rl.clients))
	}
}

func TestRateLimiter_SweepsOncePerWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl := newRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(30 * time.Second)
	rl.allow("b")
	now = now.Add(29 * time.Second)
	rl.allow("c")

	rl.mu.Lock()
	got := rl.lastSweep
	rl.mu.Unlock()
	if !got.Equal(start) {
		t.Fatalf("lastSweep = %v, want %v", got, start)
	}

	now = start.Add(2 * time.Minute)
	rl.allow("d")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.lastSweep.Equal(now) {
		t.Errorf("lastSweep = %v, want %v", rl.lastSweep, now)
	}
	if len(rl.clients) != 1 {
		t.Errorf("clients = %d, want 1 after sweep", len(rl.clients))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	g, err := New(Config{RunsPerMinute: 1}, Deps{NewAgent: answerFactory("ok")})
	if err != nil {
		t.Fatal(err)
	}

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/agent/ws", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		g.Handler().ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code == http.StatusTooManyRequests {
		t.Fatal("first request was rate limited")
	}
	second := send()
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Status is outside the limited group.
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200", rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.2:4000", "192.168.1.2"},
		{"[::1]:80", "::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientKey(r); got != tt.want {
			t.Errorf("clientKey(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
