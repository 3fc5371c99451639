package llm

import "fmt"

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultXAIBaseURL        = "https://api.x.ai/v1"
	defaultGroqBaseURL       = "https://api.groq.com/openai/v1"
)

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
// OpenRouter exposes an OpenAI-compatible API, so the underlying SDK is reused.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	return newOpenAICompatible("openrouter", cfg.APIKey, orDefault(cfg.BaseURL, defaultOpenRouterBaseURL),
		cfg.Model, formatJSONSchema), nil
}

// NewXAIProvider creates a provider targeting xAI's Grok models.
func NewXAIProvider(cfg CompatConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("xai API key is required")
	}
	return newOpenAICompatible("xai", cfg.APIKey, orDefault(cfg.BaseURL, defaultXAIBaseURL),
		cfg.Model, formatJSONObject), nil
}

// NewGroqProvider creates a provider targeting Groq's hosted models.
func NewGroqProvider(cfg CompatConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}
	return newOpenAICompatible("groq", cfg.APIKey, orDefault(cfg.BaseURL, defaultGroqBaseURL),
		cfg.Model, formatJSONObject), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
