package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/docchat/docchat-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained requests/second allowed per client
	// IP on /chat when RateLimit is not configured.
	defaultRateLimit = 10

	// defaultRateBurst is the per-IP burst capacity when RateBurst is not
	// configured.
	defaultRateBurst = 20

	// staleAfter is how long an idle IP keeps its bucket before the
	// sweeper reclaims it.
	staleAfter = 5 * time.Minute

	// sweepEvery is the interval between sweeps of idle buckets.
	sweepEvery = time.Minute
)

// visitor pairs a client IP's token bucket with its last activity time.
type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket on chat requests. Buckets are
// created lazily per IP and swept once they go idle, so memory stays
// proportional to the set of recently active clients.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	rps   rate.Limit
	burst int
	log   *slog.Logger
}

// newRateLimiter builds a rateLimiter and starts its sweeper goroutine.
// Calling the returned stop function terminates the sweeper.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log,
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()

	return rl, func() { close(done) }
}

// allow consumes one token from ip's bucket, creating the bucket on first
// sight, and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.bucket.Allow()
}

// sweep drops buckets whose IP has been idle longer than staleAfter.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	horizon := time.Now().Add(-staleAfter)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(horizon) {
			delete(rl.visitors, ip)
		}
	}
}

// middleware rejects over-limit requests with 429 and a Retry-After header
// before they reach next.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns RemoteAddr without its port. X-Forwarded-For is
// deliberately ignored; nothing guarantees a trusted proxy in front of
// this server.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
