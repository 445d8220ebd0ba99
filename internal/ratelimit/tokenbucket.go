// Package ratelimit provides the process-wide token bucket gating outbound
// upstream calls.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a non-blocking token bucket sized in calls per minute.
// Tokens replenish lazily at capacity/60 per second, computed on each
// admission check, so no background timer is needed. There is deliberately
// no blocking variant: callers that are denied must fall back to cached
// data instead of waiting for quota.
type TokenBucket struct {
	capacity float64
	rate     float64 // tokens per second
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// Stats is a point-in-time snapshot of the bucket, for logging.
type Stats struct {
	Tokens   float64
	Capacity float64
}

// New returns a bucket admitting up to callsPerMinute calls per minute,
// starting full. now may be nil to use time.Now.
func New(callsPerMinute int, now func() time.Time) *TokenBucket {
	if callsPerMinute <= 0 {
		callsPerMinute = 1
	}
	if now == nil {
		now = time.Now
	}
	return &TokenBucket{
		capacity: float64(callsPerMinute),
		rate:     float64(callsPerMinute) / 60.0,
		now:      now,
		tokens:   float64(callsPerMinute),
		last:     now(),
	}
}

// TryAcquire consumes n tokens if available and reports whether the call is
// admitted. Denials leave the bucket unchanged. The refill and the
// check-and-decrement happen under one lock, so two concurrent callers can
// never both spend the same token.
func (tb *TokenBucket) TryAcquire(n int) bool {
	if n <= 0 {
		n = 1
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Stats returns the current token count after refill, for logging on
// denial.
func (tb *TokenBucket) Stats() Stats {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return Stats{Tokens: tb.tokens, Capacity: tb.capacity}
}

// refill credits tokens for the time elapsed since the last computation.
// Must be called with the lock held.
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last).Seconds()
	if elapsed > 0 {
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
	}
	tb.last = now
}
