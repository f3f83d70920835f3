// Package ratelimit provides a local token bucket for quota-bound APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a token bucket refilled continuously. It keeps one process under
// a per-period allowance, e.g. the 45 requests/minute of ip-api's free tier.
type Bucket struct {
	mu     sync.Mutex
	limit  float64 // capacity and refill amount per period
	tokens float64
	period time.Duration
	last   time.Time
}

// NewBucket allows limit requests per period, starting full.
func NewBucket(limit int, period time.Duration) *Bucket {
	if limit < 1 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Bucket{
		limit:  float64(limit),
		tokens: float64(limit),
		period: period,
		last:   time.Now(),
	}
}

// Allow takes a token if one is available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Wait blocks until a token is available or ctx is done.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refill()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		need := time.Duration((1 - b.tokens) / b.limit * float64(b.period))
		b.mu.Unlock()

		timer := time.NewTimer(need)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill credits tokens for the time elapsed since the last call.
// Callers hold mu.
func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.last = now
	b.tokens += b.limit * float64(elapsed) / float64(b.period)
	if b.tokens > b.limit {
		b.tokens = b.limit
	}
}
