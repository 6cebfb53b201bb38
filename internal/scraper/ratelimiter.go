package scraper

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// refillWindow is the period over which a full set of worker tokens is
// restored. Spacing requests out keeps the catalogue servers happy.
const refillWindow = 15 * time.Second

// RateLimiter is a token bucket with a randomized politeness delay.
// A burst of `workers` requests is allowed, after which requests are
// spread across the refill window.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	minDelay   time.Duration
	maxDelay   time.Duration
}

// NewRateLimiter creates a rate limiter allowing `workers` concurrent
// request slots, each followed by a random delay in [minDelay, maxDelay].
func NewRateLimiter(workers int, minDelay, maxDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     float64(workers),
		maxTokens:  float64(workers),
		refillRate: float64(workers) / refillWindow.Seconds(),
		lastRefill: time.Now(),
		minDelay:   minDelay,
		maxDelay:   maxDelay,
	}
}

// Wait blocks until a request slot is available, then applies the
// politeness delay. Returns the context error if canceled while waiting.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return Sleep(ctx, r.randomDelay())
		}
		needed := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()

		// Re-check periodically so a canceled context is noticed even
		// during long refill waits.
		if needed > time.Second {
			needed = time.Second
		}
		select {
		case <-time.After(needed):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill accrues tokens for the time elapsed since the last refill.
// Caller must hold the mutex.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// randomDelay picks a uniform delay in [minDelay, maxDelay].
func (r *RateLimiter) randomDelay() time.Duration {
	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	span := uint64(r.maxDelay - r.minDelay)
	var b [8]byte
	_, _ = rand.Read(b[:])
	return r.minDelay + time.Duration(binary.LittleEndian.Uint64(b[:])%span)
}
