package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider is a decorator that holds each request until the
// provider's token bucket allows it.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps a Provider with a token bucket limiter.
func WithRateLimit(p Provider, rl RateLimit) Provider {
	return &RateLimitedProvider{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.Burst),
	}
}

func (r *RateLimitedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyTransport(ctxErr)
		}
		// Wait fails early when the deadline would pass before a token frees up.
		return nil, &ErrTransient{Reason: ReasonRateLimited, Err: err}
	}
	return r.inner.Generate(ctx, req)
}

func (r *RateLimitedProvider) Name() string { return r.inner.Name() }

func (r *RateLimitedProvider) ModelID() string {
	return r.inner.ModelID()
}
