package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, requests int) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(Config{Requests: requests, Period: time.Minute})
	t.Cleanup(l.Stop)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	l, now := newTestLimiter(t, 2)

	for i, want := range []bool{true, true, false, false} {
		if got := l.Allow("a"); got != want {
			t.Fatalf("request %d: Allow() = %v, want %v", i+1, got, want)
		}
	}
	if !l.Allow("b") {
		t.Fatal("other clients have their own budget")
	}

	*now = now.Add(30 * time.Second)
	if got := l.RetryAfter("a"); got != 30*time.Second {
		t.Fatalf("RetryAfter = %v, want 30s", got)
	}

	*now = now.Add(31 * time.Second)
	if !l.Allow("a") {
		t.Fatal("a new window should reset the count")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l, now := newTestLimiter(t, 5)
	l.Allow("a")
	l.Allow("b")
	*now = now.Add(2 * time.Minute)
	l.Allow("c")

	l.cleanup()
	if n := l.ActiveClients(); n != 1 {
		t.Fatalf("expected only the fresh client to remain, got %d", n)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := l.Middleware(func(r *http.Request) string { return "client" }, nil, http.MethodPost)(next)

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/companies/import", nil))
		if rr.Code != tt.want {
			t.Fatalf("request %d (%s): status %d, want %d", i+1, tt.method, rr.Code, tt.want)
		}
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") == "" {
			t.Fatal("Retry-After header missing")
		}
	}

	var called bool
	custom := l.Middleware(func(r *http.Request) string { return "client" }, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusSeeOther)
	})(next)
	rr := httptest.NewRecorder()
	custom.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if !called || rr.Code != http.StatusSeeOther {
		t.Fatalf("custom onLimit not used (status %d)", rr.Code)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(Config{})
	l.Stop()
	l.Stop()
	if l.limit != DefaultConfig().Requests {
		t.Fatalf("zero config should fall back to defaults, got %d", l.limit)
	}
}
