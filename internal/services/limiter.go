package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces outbound catalog requests at least Delay apart across the whole process.
//
// The first call returns immediately.
type RateLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewRateLimiter creates a limiter with burst 1. A non-positive delay disables limiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1), delay: delay}
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Delay returns the configured spacing.
func (l *RateLimiter) Delay() time.Duration {
	return l.delay
}
