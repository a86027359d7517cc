// Copyright 2025 Joseph Cumines
//
// Token bucket rate limiter for the HTTP transport

package transport

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a token bucket. The bucket refills at rate tokens per
// second up to burst capacity; an empty bucket rejects requests with HTTP
// 429. A nil *RateLimiter disables limiting, so callers can use one
// unconditionally.
type RateLimiter struct {
	clock      func() time.Time
	lastUpdate time.Time
	rate       float64
	burst      float64
	tokens     float64
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained,
// with a burst of twice that (minimum 1). A non-positive rate returns nil,
// which disables limiting.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return NewRateLimiterWithClock(requestsPerSecond, time.Now)
}

// NewRateLimiterWithClock is NewRateLimiter with an injectable clock for
// tests.
func NewRateLimiterWithClock(requestsPerSecond float64, clock func() time.Time) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := requestsPerSecond * 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:       requestsPerSecond,
		burst:      burst,
		tokens:     burst,
		lastUpdate: clock(),
		clock:      clock,
	}
}

// Allow consumes one token if available.
func (l *RateLimiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Middleware rejects requests with 429 when the bucket is empty. A nil
// limiter passes everything through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
