package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces quote requests with a token bucket. The bucket holds up
// to burst tokens and refills at perMinute/60 tokens per second. Callers that
// find it empty reserve the next token and sleep until it is due, so queued
// requests are spaced evenly instead of polling.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second, <= 0 means unlimited
	burst  float64
	tokens float64
	last   time.Time

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// LimiterOption configures a RateLimiter.
type LimiterOption func(*RateLimiter)

// WithBurst lets up to n requests through back to back before pacing starts.
func WithBurst(n int) LimiterOption {
	return func(rl *RateLimiter) {
		if n > 0 {
			rl.burst = float64(n)
		}
	}
}

// WithLimiterClock replaces the time source and the timer used for sleeping.
func WithLimiterClock(now func() time.Time, after func(time.Duration) <-chan time.Time) LimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
		rl.after = after
	}
}

// NewRateLimiter creates a RateLimiter that allows perMinute requests per
// minute. The bucket starts full.
func NewRateLimiter(perMinute int, opts ...LimiterOption) *RateLimiter {
	rl := &RateLimiter{
		rate:  float64(perMinute) / 60.0,
		burst: 1,
		now:   time.Now,
		after: time.After,
	}
	for _, opt := range opts {
		opt(rl)
	}
	rl.tokens = rl.burst
	rl.last = rl.now()
	return rl
}

// reserve takes a token, possibly going into debt, and returns how long the
// caller has to wait before it may use it.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.last = now

	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done. A cancelled wait
// hands its reservation back.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.rate <= 0 {
		return nil
	}
	d := rl.reserve()
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return ctx.Err()
	case <-rl.after(d):
		return nil
	}
}
