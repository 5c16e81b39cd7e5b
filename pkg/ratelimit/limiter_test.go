package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	time.Sleep(120 * time.Millisecond)
	if !tb.Allow() {
		t.Error("Expected tokens to be refilled after waiting")
	}

	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	if !tb.Allow() {
		t.Fatal("first token should be available")
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("Wait returned before the bucket refilled")
	}
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(2, 100*time.Millisecond)

	for i := 0; i < 2; i++ {
		if !sw.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}
	if sw.Allow() {
		t.Error("Expected request to be denied when limit is reached")
	}

	time.Sleep(120 * time.Millisecond)
	if !sw.Allow() {
		t.Error("Expected request to be allowed after window slides")
	}

	sw.Reset()
	if len(sw.requests) != 0 {
		t.Error("Expected requests to be cleared after reset")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	limiters := map[string]Limiter{
		"token bucket":   NewTokenBucket(1, time.Hour),
		"sliding window": PerMinute(1),
	}

	for name, l := range limiters {
		t.Run(name, func(t *testing.T) {
			if !l.Allow() {
				t.Fatal("first request should be allowed")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()

			err := l.Wait(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected deadline error, got %v", err)
			}
		})
	}
}

func TestSlidingWindowUsage(t *testing.T) {
	sw := PerMinute(3)
	sw.Allow()
	sw.Allow()

	used, max, resetAt := sw.Usage()
	if used != 2 || max != 3 {
		t.Errorf("Expected 2/3 used, got %d/%d", used, max)
	}
	if until := time.Until(resetAt); until <= 50*time.Second || until > time.Minute {
		t.Errorf("Expected reset about a minute out, got %v", until)
	}
}
