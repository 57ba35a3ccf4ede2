package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for pacing outbound requests
type Limiter interface {
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket paces requests with a token bucket
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewPerMinute creates a token bucket admitting perMinute requests per minute
// with the given burst. A non-positive perMinute disables limiting.
func NewPerMinute(perMinute, burst int) Limiter {
	if perMinute <= 0 {
		return Unlimited{}
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
