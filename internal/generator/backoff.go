package generator

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/qagen/internal/llm"
)

// delay computes the wait before retry number n (zero-based) after err.
// A vendor Retry-After hint replaces the computed delay. Every result is
// capped at b.Max.
func (b Backoff) delay(n int, err error) time.Duration {
	var tr *llm.ErrTransient
	if errors.As(err, &tr) && tr.RetryAfter > 0 {
		return b.clamp(float64(tr.RetryAfter))
	}

	wait := float64(b.Initial) * math.Pow(b.Multiplier, float64(n))
	if b.Max > 0 && wait > float64(b.Max) {
		wait = float64(b.Max)
	}
	if b.Jitter > 0 {
		wait += wait * b.Jitter * (2*rand.Float64() - 1)
	}
	return b.clamp(wait)
}

func (b Backoff) clamp(wait float64) time.Duration {
	if wait < 0 {
		return 0
	}
	if b.Max > 0 && wait > float64(b.Max) {
		return b.Max
	}
	return time.Duration(wait)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
