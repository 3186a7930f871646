package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RealIP returns the client address, honoring X-Forwarded-For when the server
// sits behind a reverse proxy.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimiter tracks request timestamps per key for sliding-window limiting.
type RateLimiter struct {
	mu    sync.Mutex
	hits  map[string][]time.Time
	clock func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		hits:  make(map[string][]time.Time),
		clock: time.Now,
	}
}

// Allow records a hit for key and reports whether it stays within limit hits
// per window.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock()
	cutoff := now.Add(-window)

	recent := rl.hits[key][:0]
	for _, t := range rl.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= limit {
		rl.hits[key] = recent
		return false
	}
	rl.hits[key] = append(recent, now)
	return true
}

// Cleanup drops keys whose newest hit is older than an hour. Meant to run
// periodically so idle keys do not accumulate.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock().Add(-time.Hour)
	for key, hits := range rl.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(rl.hits, key)
		}
	}
}

// RateLimit returns middleware that answers 429 once the key derived from the
// request exceeds limit hits per window.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, window) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
