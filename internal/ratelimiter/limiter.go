package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket guarding calls to the email provider, whose API
// enforces a per-second request quota shared by every concurrent dispatch.
// Burst equals the rate so a quiet period cannot save up extra capacity.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing ratePerSec calls per second.
func New(ratePerSec int) *Limiter {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until a token is available.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
