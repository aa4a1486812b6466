package papersources

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound requests to one provider so a burst of
// searches stays within the provider's published request rate. It does not
// retry or back off; it only delays. Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows perSecond sustained requests with bursts of up to
// burst. A non-positive perSecond disables pacing.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request slot is free and reports how long it waited.
// It fails early when ctx ends or its deadline is too close to be met.
func (r *RateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := r.limiter.Wait(ctx)
	return time.Since(start), err
}
