package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until a request is allowed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a thread-safe token bucket shared by every client
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a limiter allowing requestsPerMinute on average with
// bursts of up to burst requests
func NewTokenBucket(requestsPerMinute int, burst int) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(perMinute(requestsPerMinute), burst),
	}
}

// Wait blocks until the bucket yields a token or the context is cancelled
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// Unlimited never blocks; used by tests and by clients built without a limiter
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
