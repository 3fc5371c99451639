package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/qagen/internal/store"
)

// NewProvider creates the named Provider from configuration.
// It returns the provider wrapped with rate limiting and logging middleware.
// eventRepo may be nil to skip event logging.
func NewProvider(ctx context.Context, name string, cfg Config, eventRepo store.EventRepo) (Provider, error) {
	var base Provider
	var err error

	switch name {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderXAI:
		base, err = NewXAIProvider(cfg.XAI)
	case ProviderGroq:
		base, err = NewGroqProvider(cfg.Groq)
	case ProviderOllama:
		base, err = NewOllamaProvider(cfg.Ollama)
	case ProviderMock:
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", name, err)
	}

	// Wrap with middleware: caller → rate limit → logging → base
	p := base
	if eventRepo != nil {
		p = WithLogging(p, eventRepo)
	}
	if rl, ok := cfg.RateLimits[name]; ok {
		p = WithRateLimit(p, rl)
	}
	return p, nil
}

// NewProviders builds every provider listed in cfg.Providers, keyed by name.
func NewProviders(ctx context.Context, cfg Config, eventRepo store.EventRepo) (map[string]Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string]Provider, len(cfg.Providers))
	for _, name := range cfg.Providers {
		p, err := NewProvider(ctx, name, cfg, eventRepo)
		if err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}
