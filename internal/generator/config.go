package generator

import (
	"time"

	"github.com/abhisek/qagen/internal/chunker"
	"github.com/abhisek/qagen/internal/qa"
)

// CountMismatchPolicy decides what happens when a provider returns a
// well-formed bank with the wrong number of questions.
type CountMismatchPolicy string

const (
	// CountMismatchFallback moves the chunk to the next provider, or fails
	// it when none is left.
	CountMismatchFallback CountMismatchPolicy = "fallback"

	// CountMismatchRetry retries the same provider within its retry
	// budget, restating the required count in the prompt.
	CountMismatchRetry CountMismatchPolicy = "retry"
)

// Backoff configures the delay between retries of one chunk.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration

	// Max caps every delay, including vendor Retry-After hints.
	Max time.Duration

	// Multiplier grows the delay per retry. Must be >= 1.
	Multiplier float64

	// Jitter spreads each delay by ±Jitter (a fraction in [0, 1]).
	Jitter float64
}

// Config controls one Generate call.
type Config struct {
	// MaxChunkSize is the maximum chunk length in runes.
	MaxChunkSize int

	// Overlap is how many runes each chunk repeats from the previous one.
	Overlap int

	// QuestionCount is the exact number of questions requested per chunk.
	// Zero accepts any non-empty bank.
	QuestionCount int

	// QuestionType selects plain QA pairs or multiple choice questions.
	QuestionType qa.QuestionType

	// MaxRetries is how many times a chunk is retried on the same provider
	// after transient, parse and field errors.
	MaxRetries int

	// UnknownRetries is the retry budget for uncategorized provider errors.
	// Negative derives MaxRetries/2.
	UnknownRetries int

	// ConcurrencyLimit bounds the number of chunks in flight.
	ConcurrencyLimit int

	// ProviderPriority lists provider names in fallback order. Empty uses
	// the orchestrator's default order.
	ProviderPriority []string

	// CountMismatchPolicy defaults to CountMismatchFallback.
	CountMismatchPolicy CountMismatchPolicy

	// FallbackOnExhaustion moves a chunk to the next provider when its
	// retry budget runs out, instead of failing it.
	FallbackOnExhaustion bool

	// AttemptTimeout bounds a single provider call. Default 60s.
	AttemptTimeout time.Duration

	Backoff Backoff

	// MaxTokens is the token budget for each LLM response. Default 4096.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// Source overrides the document's own source label in prompts.
	Source string
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:        4000,
		Overlap:             200,
		QuestionCount:       5,
		QuestionType:        qa.TypeQA,
		MaxRetries:          3,
		UnknownRetries:      -1,
		ConcurrencyLimit:    4,
		CountMismatchPolicy: CountMismatchFallback,
		AttemptTimeout:      60 * time.Second,
		Backoff: Backoff{
			Initial:    1 * time.Second,
			Max:        30 * time.Second,
			Multiplier: 2.0,
			Jitter:     0.2,
		},
		MaxTokens:   4096,
		Temperature: 0.3,
	}
}

// withDefaults fills fields whose zero value is never meaningful.
func (c Config) withDefaults() Config {
	if c.QuestionType == "" {
		c.QuestionType = qa.TypeQA
	}
	if c.CountMismatchPolicy == "" {
		c.CountMismatchPolicy = CountMismatchFallback
	}
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = 60 * time.Second
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Backoff.Multiplier == 0 {
		c.Backoff.Multiplier = 2.0
	}
	if c.UnknownRetries < 0 {
		c.UnknownRetries = c.MaxRetries / 2
	}
	return c
}

// Validate reports the first invalid field as a *qa.ConfigError.
func (c Config) Validate() error {
	if err := c.chunking().Validate(); err != nil {
		return err
	}
	switch {
	case c.QuestionCount < 0:
		return qa.ConfigErrorf("question_count", "must be >= 0, got %d", c.QuestionCount)
	case !c.QuestionType.Valid():
		return qa.ConfigErrorf("question_type", "must be %q or %q, got %q", qa.TypeQA, qa.TypeMCQ, c.QuestionType)
	case c.MaxRetries < 0:
		return qa.ConfigErrorf("max_retries", "must be >= 0, got %d", c.MaxRetries)
	case c.ConcurrencyLimit < 1:
		return qa.ConfigErrorf("concurrency_limit", "must be >= 1, got %d", c.ConcurrencyLimit)
	case c.CountMismatchPolicy != CountMismatchFallback && c.CountMismatchPolicy != CountMismatchRetry:
		return qa.ConfigErrorf("count_mismatch_policy", "must be %q or %q, got %q",
			CountMismatchFallback, CountMismatchRetry, c.CountMismatchPolicy)
	case c.AttemptTimeout < 0:
		return qa.ConfigErrorf("attempt_timeout", "must be >= 0, got %s", c.AttemptTimeout)
	case c.Backoff.Initial < 0 || c.Backoff.Max < 0:
		return qa.ConfigErrorf("backoff", "delays must be >= 0")
	case c.Backoff.Max < c.Backoff.Initial:
		return qa.ConfigErrorf("backoff.max", "must be >= backoff.initial (%s), got %s", c.Backoff.Initial, c.Backoff.Max)
	case c.Backoff.Multiplier < 1:
		return qa.ConfigErrorf("backoff.multiplier", "must be >= 1, got %g", c.Backoff.Multiplier)
	case c.Backoff.Jitter < 0 || c.Backoff.Jitter > 1:
		return qa.ConfigErrorf("backoff.jitter", "must be in [0, 1], got %g", c.Backoff.Jitter)
	case c.MaxTokens < 0:
		return qa.ConfigErrorf("max_tokens", "must be >= 0, got %d", c.MaxTokens)
	case c.Temperature < 0 || c.Temperature > 1:
		return qa.ConfigErrorf("temperature", "must be in [0, 1], got %g", c.Temperature)
	}
	return nil
}

func (c Config) chunking() chunker.Config {
	return chunker.Config{MaxSize: c.MaxChunkSize, Overlap: c.Overlap}
}
