// Package ratelimit paces how often new browser sessions and collection
// requests may start.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a slot if so
	Allow() bool
	// Wait blocks until a slot is available or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial state
	Reset()
}

// TokenBucket refills to full capacity once every refill period
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if time.Since(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = time.Now()
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return waitUntil(ctx, tb.Allow, func() time.Duration {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		return tb.refillPeriod - time.Since(tb.lastRefill)
	})
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// SlidingWindow admits at most maxRequests within any window
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// PerMinute builds the limiter used to pace browser sessions
func PerMinute(sessions int) *SlidingWindow {
	return NewSlidingWindow(sessions, time.Minute)
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.evict(now)
	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	return waitUntil(ctx, sw.Allow, func() time.Duration {
		sw.mu.Lock()
		defer sw.mu.Unlock()
		if len(sw.requests) == 0 {
			return 0
		}
		return sw.windowSize - time.Since(sw.requests[0])
	})
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// Usage reports the admitted requests in the current window, the window
// capacity and when the oldest request leaves the window
func (sw *SlidingWindow) Usage() (used, max int, resetAt time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.evict(now)
	resetAt = now
	if len(sw.requests) > 0 {
		resetAt = sw.requests[0].Add(sw.windowSize)
	}
	return len(sw.requests), sw.maxRequests, resetAt
}

// evict drops requests that fell out of the window
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.requests = append(sw.requests[:0], sw.requests[i:]...)
	}
}

const minPoll = 10 * time.Millisecond

// waitUntil polls allow, sleeping for the hinted duration between tries
func waitUntil(ctx context.Context, allow func() bool, next func() time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if allow() {
			return nil
		}

		delay := next()
		if delay < minPoll {
			delay = minPoll
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
