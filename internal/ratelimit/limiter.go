// Package ratelimit caps how many packets per second the whole network may send.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is shared by every node of a run. A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns a limiter admitting pps packets per second with a burst of pps.
// pps <= 0 disables limiting.
func NewRateLimiter(pps int) *RateLimiter {
	if pps < 0 {
		pps = 0
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(pps), pps),
	}
}

// Wait blocks until one send is admitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.limiter.Limit() == 0 {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// PPS reports the configured limit; 0 means unlimited.
func (r *RateLimiter) PPS() int {
	if r == nil {
		return 0
	}
	return int(r.limiter.Limit())
}
