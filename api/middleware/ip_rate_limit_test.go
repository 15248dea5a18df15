package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewIPRateLimiter("tracking", 1, 2)
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	handler := limiter.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/tracking/PH123", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected burst of two to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request limited, got %v", codes)
	}
}

func TestIPRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewIPRateLimiter("quote", 1, 1)
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	if !limiter.allow("1.1.1.1") || !limiter.allow("2.2.2.2") {
		t.Fatal("distinct clients should each get their own bucket")
	}
	if limiter.allow("1.1.1.1") {
		t.Fatal("expected first client exhausted")
	}
}

func TestIPRateLimiterRefillsAndSweeps(t *testing.T) {
	limiter := NewIPRateLimiter("webhook", 1, 1)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.allow("1.1.1.1") {
		t.Fatal("first request should pass")
	}
	now = now.Add(2 * time.Second)
	if !limiter.allow("1.1.1.1") {
		t.Fatal("bucket should refill after a second")
	}

	now = now.Add(visitorIdleTTL + sweepEvery)
	limiter.allow("3.3.3.3")
	if got := limiter.size(); got != 1 {
		t.Fatalf("expected idle visitor swept, have %d", got)
	}
}

func TestIPRateLimiterDisabled(t *testing.T) {
	limiter := NewIPRateLimiter("off", 0, 0)
	for i := 0; i < 100; i++ {
		if !limiter.allow("1.1.1.1") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}
