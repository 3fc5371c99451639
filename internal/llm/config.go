package llm

import (
	"fmt"
	"os"
	"slices"
)

// Provider names accepted in Config.Providers.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderXAI        = "xai"
	ProviderGroq       = "groq"
	ProviderOllama     = "ollama"
	ProviderMock       = "mock"
)

// KnownProviders lists every provider name NewProvider understands.
var KnownProviders = []string{
	ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter,
	ProviderXAI, ProviderGroq, ProviderOllama, ProviderMock,
}

// Config holds all LLM provider configuration.
type Config struct {
	// Providers lists the providers to construct, in fallback priority
	// order. Values: see KnownProviders.
	Providers []string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	XAI        CompatConfig
	Groq       CompatConfig
	Ollama     OllamaConfig

	// RateLimits caps request rate per provider name. Providers without an
	// entry are not limited.
	RateLimits map[string]RateLimit
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string // Default: "claude-haiku"
	BaseURL string // Optional.
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string
	Model   string // Default: "gemini-flash"
	BaseURL string // Optional.
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.5-flash"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// CompatConfig configures an OpenAI-compatible vendor (xAI, Groq).
type CompatConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Default: the vendor's public endpoint.
}

// OllamaConfig holds Ollama configuration.
type OllamaConfig struct {
	ServerURL string // Default: "http://localhost:11434"
	Model     string // Default: "llama3.2"
}

// RateLimit is a token bucket: RequestsPerSecond refill, Burst capacity.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a Config with sensible defaults and no providers
// enabled.
func DefaultConfig() Config {
	return Config{
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.5-flash",
		},
		XAI: CompatConfig{
			Model: "grok-3-mini",
		},
		Groq: CompatConfig{
			Model: "llama-3.3-70b-versatile",
		},
		Ollama: OllamaConfig{
			ServerURL: defaultOllamaServerURL,
			Model:     "llama3.2",
		},
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini → OpenAI → Anthropic → OpenRouter → xAI → Groq → Ollama) and
// enables every provider whose key is found, in that order. Model names
// are taken from <VENDOR>_MODEL_NAME when set. Returns (Config{}, false)
// if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Providers = append(cfg.Providers, ProviderGemini)
		cfg.Gemini.APIKey = k
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Providers = append(cfg.Providers, ProviderOpenAI)
		cfg.OpenAI.APIKey = k
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Providers = append(cfg.Providers, ProviderAnthropic)
		cfg.Anthropic.APIKey = k
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Providers = append(cfg.Providers, ProviderOpenRouter)
		cfg.OpenRouter.APIKey = k
	}
	if k := os.Getenv("XAI_API_KEY"); k != "" {
		cfg.Providers = append(cfg.Providers, ProviderXAI)
		cfg.XAI.APIKey = k
	}
	if k := os.Getenv("GROQ_API_KEY"); k != "" {
		cfg.Providers = append(cfg.Providers, ProviderGroq)
		cfg.Groq.APIKey = k
	}
	if h := os.Getenv("OLLAMA_HOST"); h != "" {
		cfg.Providers = append(cfg.Providers, ProviderOllama)
		cfg.Ollama.ServerURL = h
	}

	if len(cfg.Providers) == 0 {
		return Config{}, false
	}

	for _, m := range []struct {
		env   string
		model *string
	}{
		{"GEMINI_MODEL_NAME", &cfg.Gemini.Model},
		{"OPENAI_MODEL_NAME", &cfg.OpenAI.Model},
		{"ANTHROPIC_MODEL_NAME", &cfg.Anthropic.Model},
		{"OPENROUTER_MODEL_NAME", &cfg.OpenRouter.Model},
		{"XAI_MODEL_NAME", &cfg.XAI.Model},
		{"GROQ_MODEL_NAME", &cfg.Groq.Model},
		{"OLLAMA_MODEL_NAME", &cfg.Ollama.Model},
	} {
		if v := os.Getenv(m.env); v != "" {
			*m.model = v
		}
	}
	return cfg, true
}

// Validate checks that every enabled provider is known and has its
// required credentials set.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no LLM providers configured")
	}
	for i, name := range c.Providers {
		if slices.Contains(c.Providers[:i], name) {
			return fmt.Errorf("LLM provider %q listed twice", name)
		}
		if err := c.validateProvider(name); err != nil {
			return err
		}
	}
	for name, rl := range c.RateLimits {
		if rl.RequestsPerSecond <= 0 || rl.Burst < 1 {
			return fmt.Errorf("rate limit for %q needs requests_per_second > 0 and burst >= 1", name)
		}
	}
	return nil
}

func (c Config) validateProvider(name string) error {
	switch name {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("QAGEN_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("QAGEN_OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("QAGEN_GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("QAGEN_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderXAI:
		if c.XAI.APIKey == "" {
			return fmt.Errorf("QAGEN_XAI_API_KEY is required for the xai provider")
		}
	case ProviderGroq:
		if c.Groq.APIKey == "" {
			return fmt.Errorf("QAGEN_GROQ_API_KEY is required for the groq provider")
		}
	case ProviderOllama:
		if c.Ollama.Model == "" {
			return fmt.Errorf("QAGEN_OLLAMA_MODEL is required for the ollama provider")
		}
	case ProviderMock:
		// No credentials needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", name)
	}
	return nil
}
