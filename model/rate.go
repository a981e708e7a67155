package model

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedModel throttles Generate calls through a token bucket. It is
// safe to share between the concurrent agents of a meeting.
type RateLimitedModel struct {
	next    Model
	limiter *rate.Limiter
}

// RateLimited wraps m so at most rps calls per second (with the given burst)
// reach the backend. A non-positive rps returns m unchanged.
func RateLimited(m Model, rps float64, burst int) Model {
	if rps <= 0 {
		return m
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimitedModel{
		next:    m,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Generate implements Model. Waiting for a token respects ctx.
func (r *RateLimitedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if err := r.limiter.Wait(ctx); err != nil {
		respCh := make(chan Response)
		errCh := make(chan error, 1)

		close(respCh)
		errCh <- fmt.Errorf("rate limiter: %w", err)
		close(errCh)

		return respCh, errCh
	}

	return r.next.Generate(ctx, req)
}

// Info implements Model.
func (r *RateLimitedModel) Info() Info { return r.next.Info() }
