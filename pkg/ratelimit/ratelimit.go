// Package ratelimit implements the per-session token bucket admission
// control described in spec §4.3 (component C3), built on
// golang.org/x/time/rate the way the teacher's pkg/model/client.go
// throttles outbound model calls.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucket pairs a rate.Limiter with the wall-clock time it was last
// touched, so Cleanup can find idle sessions without re-deriving it
// from the limiter's internal state.
type bucket struct {
	limiter   *rate.Limiter
	lastTouch time.Time
}

// Limiter admits or denies calls per session_id under independent
// token buckets, all sharing one (max_tokens, refill_rate) policy.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  float64
	refillRate float64
	now        func() time.Time
}

// New creates a Limiter with the given burst size and refill rate
// (tokens per wall-clock second).
func New(maxTokens, refillRate float64) *Limiter {
	return &Limiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		now:        time.Now,
	}
}

// Check admits or denies sessionID against its bucket, creating the
// bucket at max_tokens if this is the first call for that session
// (spec §4.3 steps 1-3).
func (l *Limiter) Check(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[sessionID]
	if !ok {
		b = &bucket{
			limiter:   rate.NewLimiter(rate.Limit(l.refillRate), int(l.maxTokens)),
			lastTouch: now,
		}
		l.buckets[sessionID] = b
	}
	b.lastTouch = now
	return b.limiter.AllowN(now, 1)
}

// Cleanup drops buckets that have not been touched within maxIdle,
// freeing memory held by sessions that have gone away (spec §4.3).
func (l *Limiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for id, b := range l.buckets {
		if now.Sub(b.lastTouch) > maxIdle {
			delete(l.buckets, id)
			dropped++
		}
	}
	return dropped
}

// Count reports the number of tracked buckets, used by tests and
// operational metrics.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
