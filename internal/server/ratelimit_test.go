package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler stands in for the real chat handler behind the middleware.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// hitChat sends one POST /chat from the given address and returns the
// recorded response.
func hitChat(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(100, 5, slog.Default())
	defer stop()
	h := rl.middleware(okHandler)

	for i := range 5 {
		if w := hitChat(h, "127.0.0.1:12345"); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Code)
		}
	}
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	t.Parallel()

	// A refill rate this low means the bucket never recovers within the test.
	rl, stop := newRateLimiter(0.001, 2, slog.Default())
	defer stop()
	h := rl.middleware(okHandler)

	var rejected *httptest.ResponseRecorder
	for range 10 {
		if w := hitChat(h, "10.0.0.1:9999"); w.Code == http.StatusTooManyRequests {
			rejected = w
			break
		}
	}
	if rejected == nil {
		t.Fatal("no request was rejected after exhausting the burst")
	}
	if rejected.Header().Get("Retry-After") == "" {
		t.Error("429 response is missing the Retry-After header")
	}
}

func TestRateLimit_BucketsAreScopedPerIP(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, slog.Default())
	defer stop()
	h := rl.middleware(okHandler)

	for range 5 {
		hitChat(h, "192.168.1.1:1111")
	}

	if w := hitChat(h, "192.168.1.2:2222"); w.Code != http.StatusOK {
		t.Errorf("second IP: status = %d, want 200; buckets must be independent", w.Code)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"10.0.0.1:80", "10.0.0.1"},
		{"::1:8080", "::1"},
		{"noport", "noport"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if got := clientIP(req); got != tc.want {
			t.Errorf("remoteAddr %q: ip = %q, want %q", tc.remoteAddr, got, tc.want)
		}
	}
}
