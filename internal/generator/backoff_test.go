package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/qagen/internal/llm"
)

func TestBackoff_Exponential(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for n, w := range want {
		if got := b.delay(n, errors.New("x")); got != w {
			t.Errorf("delay(%d) = %s, want %s", n, got, w)
		}
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Multiplier: 2, Jitter: 0.2}
	for range 200 {
		got := b.delay(1, nil)
		if got < 160*time.Millisecond || got > 240*time.Millisecond {
			t.Fatalf("delay %s outside ±20%% of 200ms", got)
		}
	}
}

func TestBackoff_CapAppliesAfterJitter(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: time.Second, Multiplier: 2, Jitter: 1}
	for range 100 {
		if got := b.delay(3, nil); got > time.Second || got < 0 {
			t.Fatalf("delay %s exceeds cap", got)
		}
	}
}

func TestBackoff_RetryAfter(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 5 * time.Second, Multiplier: 2, Jitter: 0.2}

	err := &llm.ErrTransient{Reason: llm.ReasonRateLimited, RetryAfter: 3 * time.Second}
	if got := b.delay(0, err); got != 3*time.Second {
		t.Errorf("expected Retry-After to be honored, got %s", got)
	}

	err = &llm.ErrTransient{Reason: llm.ReasonRateLimited, RetryAfter: time.Minute}
	if got := b.delay(0, err); got != 5*time.Second {
		t.Errorf("expected Retry-After to be capped at 5s, got %s", got)
	}
}

func TestBackoff_Zero(t *testing.T) {
	if got := (Backoff{Multiplier: 2}).delay(5, nil); got != 0 {
		t.Errorf("expected no delay, got %s", got)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep ignored cancellation")
	}
	if err := sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}
}
