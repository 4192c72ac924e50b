package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter_ZeroPPS(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl == nil {
		t.Fatal("expected non-nil rate limiter even with zero pps")
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("zero pps should not block, took %v", elapsed)
	}
}

func TestNewRateLimiter_NegativeIsUnlimited(t *testing.T) {
	rl := NewRateLimiter(-5)
	if rl.PPS() != 0 {
		t.Errorf("expected negative pps to clamp to 0, got %d", rl.PPS())
	}
}

func TestRateLimiter_NilNeverBlocks(t *testing.T) {
	var rl *RateLimiter
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter returned error: %v", err)
	}
	if rl.PPS() != 0 {
		t.Errorf("nil limiter should report 0 pps, got %d", rl.PPS())
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(1)

	// Exhaust the burst
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRateLimiter_RateLimiting(t *testing.T) {
	rl := NewRateLimiter(10)

	ctx := context.Background()
	start := time.Now()

	// First 10 sends use the burst, the next 5 need ~500ms
	for i := 0; i < 15; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
		t.Errorf("rate limiting doesn't appear to be working, elapsed: %v", elapsed)
	}
}

func TestRateLimiter_ConcurrentWait(t *testing.T) {
	rl := NewRateLimiter(1000)
	ctx := context.Background()

	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 10; j++ {
				if err := rl.Wait(ctx); err != nil {
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
