package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "ComicScout/pkg/http"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	refill   float64 // tokens per second
	now      func() time.Time
}

// New returns nil when capacity is not positive; a nil Limiter allows everything.
func New(capacity, refillPerSec float64) *Limiter {
	if capacity <= 0 {
		return nil
	}
	return &Limiter{
		m:        make(map[string]*bucket),
		capacity: capacity,
		refill:   refillPerSec,
		now:      time.Now,
	}
}

// Allow reports whether one token could be taken for key.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Prune drops buckets that have been full for at least idle.
func (l *Limiter) Prune(idle time.Duration) {
	if l == nil {
		return
	}
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
