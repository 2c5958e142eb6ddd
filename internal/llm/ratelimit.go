package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimiter throttles outbound provider requests with a token bucket.
type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter creates a new rate limiter with the specified requests per minute.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60 // Default to 60 requests per minute
	}

	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
	}
}

// wait blocks until a token is available or the context is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		}
		// The limiter refuses up front when the wait would outlast the deadline.
		return fmt.Errorf("rate limiter canceled: %w: %v", context.DeadlineExceeded, err)
	}
	return nil
}
