// Package config loads qagen settings from a YAML file, a .env file and
// QAGEN_ environment variables, and converts them into the configuration
// types of the llm, generator and cache packages.
package config

import (
	"time"

	"github.com/abhisek/qagen/internal/cache"
	"github.com/abhisek/qagen/internal/generator"
	"github.com/abhisek/qagen/internal/llm"
	"github.com/abhisek/qagen/internal/qa"
	"github.com/abhisek/qagen/internal/store"
)

// Config holds all application configuration.
type Config struct {
	LogLevel   string           `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	DBPath     string           `mapstructure:"db_path"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Generation GenerationConfig `mapstructure:"generation"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// ProvidersConfig selects and configures LLM vendors.
type ProvidersConfig struct {
	// Enabled lists providers in fallback order. Empty enables every
	// vendor that has credentials, in discovery order.
	Enabled []string `mapstructure:"enabled" validate:"dive,oneof=anthropic openai gemini openrouter xai groq ollama mock"`

	Anthropic  VendorConfig `mapstructure:"anthropic"`
	OpenAI     VendorConfig `mapstructure:"openai"`
	Gemini     VendorConfig `mapstructure:"gemini"`
	OpenRouter VendorConfig `mapstructure:"openrouter"`
	XAI        VendorConfig `mapstructure:"xai"`
	Groq       VendorConfig `mapstructure:"groq"`
	Ollama     OllamaConfig `mapstructure:"ollama"`

	RateLimits map[string]RateLimitConfig `mapstructure:"rate_limits" validate:"dive"`
}

// VendorConfig is the common shape of a hosted vendor's settings.
type VendorConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	Host  string `mapstructure:"host" validate:"omitempty,url"`
	Model string `mapstructure:"model"`
}

// RateLimitConfig caps one provider's request rate.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=1"`
}

// GenerationConfig mirrors generator.Config.
type GenerationConfig struct {
	MaxChunkSize         int           `mapstructure:"max_chunk_size" validate:"gt=0"`
	Overlap              int           `mapstructure:"overlap" validate:"gte=0,ltfield=MaxChunkSize"`
	QuestionCount        int           `mapstructure:"question_count" validate:"gte=0"`
	QuestionType         string        `mapstructure:"question_type" validate:"oneof=qa mcq"`
	MaxRetries           int           `mapstructure:"max_retries" validate:"gte=0"`
	UnknownRetries       int           `mapstructure:"unknown_retries"`
	Concurrency          int           `mapstructure:"concurrency" validate:"gte=1"`
	CountMismatchPolicy  string        `mapstructure:"count_mismatch_policy" validate:"oneof=fallback retry"`
	FallbackOnExhaustion bool          `mapstructure:"fallback_on_exhaustion"`
	AttemptTimeout       time.Duration `mapstructure:"attempt_timeout" validate:"gte=0"`
	Backoff              BackoffConfig `mapstructure:"backoff"`
	MaxTokens            int           `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature          float64       `mapstructure:"temperature" validate:"gte=0,lte=1"`
}

// BackoffConfig mirrors generator.Backoff.
type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial" validate:"gte=0"`
	Max        time.Duration `mapstructure:"max" validate:"gtefield=Initial"`
	Multiplier float64       `mapstructure:"multiplier" validate:"gte=1"`
	Jitter     float64       `mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Type          string        `mapstructure:"type" validate:"oneof=memory redis none"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Type redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// LLM converts the provider settings into an llm.Config.
func (c *Config) LLM() llm.Config {
	p := c.Providers
	cfg := llm.DefaultConfig()
	cfg.Providers = p.enabled()

	setVendor(&cfg.Anthropic.APIKey, &cfg.Anthropic.Model, &cfg.Anthropic.BaseURL, p.Anthropic)
	setVendor(&cfg.OpenAI.APIKey, &cfg.OpenAI.Model, &cfg.OpenAI.BaseURL, p.OpenAI)
	setVendor(&cfg.Gemini.APIKey, &cfg.Gemini.Model, &cfg.Gemini.BaseURL, p.Gemini)
	setVendor(&cfg.OpenRouter.APIKey, &cfg.OpenRouter.Model, &cfg.OpenRouter.BaseURL, p.OpenRouter)
	setVendor(&cfg.XAI.APIKey, &cfg.XAI.Model, &cfg.XAI.BaseURL, p.XAI)
	setVendor(&cfg.Groq.APIKey, &cfg.Groq.Model, &cfg.Groq.BaseURL, p.Groq)
	if p.Ollama.Host != "" {
		cfg.Ollama.ServerURL = p.Ollama.Host
	}
	if p.Ollama.Model != "" {
		cfg.Ollama.Model = p.Ollama.Model
	}

	if len(p.RateLimits) > 0 {
		cfg.RateLimits = make(map[string]llm.RateLimit, len(p.RateLimits))
		for name, rl := range p.RateLimits {
			cfg.RateLimits[name] = llm.RateLimit{RequestsPerSecond: rl.RequestsPerSecond, Burst: rl.Burst}
		}
	}
	return cfg
}

func setVendor(key, model, baseURL *string, v VendorConfig) {
	*key = v.APIKey
	if v.Model != "" {
		*model = v.Model
	}
	*baseURL = v.BaseURL
}

// enabled returns the explicit provider list, or every vendor with
// credentials in discovery order.
func (p ProvidersConfig) enabled() []string {
	if len(p.Enabled) > 0 {
		return p.Enabled
	}
	var names []string
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{llm.ProviderGemini, p.Gemini.APIKey != ""},
		{llm.ProviderOpenAI, p.OpenAI.APIKey != ""},
		{llm.ProviderAnthropic, p.Anthropic.APIKey != ""},
		{llm.ProviderOpenRouter, p.OpenRouter.APIKey != ""},
		{llm.ProviderXAI, p.XAI.APIKey != ""},
		{llm.ProviderGroq, p.Groq.APIKey != ""},
		{llm.ProviderOllama, p.Ollama.Host != ""},
	} {
		if c.ok {
			names = append(names, c.name)
		}
	}
	return names
}

// Generator converts the generation settings into a generator.Config.
// The provider priority follows the enabled provider order.
func (c *Config) Generator() generator.Config {
	g := c.Generation
	return generator.Config{
		MaxChunkSize:         g.MaxChunkSize,
		Overlap:              g.Overlap,
		QuestionCount:        g.QuestionCount,
		QuestionType:         qa.QuestionType(g.QuestionType),
		MaxRetries:           g.MaxRetries,
		UnknownRetries:       g.UnknownRetries,
		ConcurrencyLimit:     g.Concurrency,
		ProviderPriority:     c.Providers.enabled(),
		CountMismatchPolicy:  generator.CountMismatchPolicy(g.CountMismatchPolicy),
		FallbackOnExhaustion: g.FallbackOnExhaustion,
		AttemptTimeout:       g.AttemptTimeout,
		Backoff: generator.Backoff{
			Initial:    g.Backoff.Initial,
			Max:        g.Backoff.Max,
			Multiplier: g.Backoff.Multiplier,
			Jitter:     g.Backoff.Jitter,
		},
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
	}
}

// CacheSettings converts the cache settings into a cache.Config.
func (c *Config) CacheSettings() cache.Config {
	def := cache.DefaultConfig()
	return cache.Config{
		Type:            c.Cache.Type,
		RedisAddr:       c.Cache.RedisAddr,
		RedisPassword:   c.Cache.RedisPassword,
		RedisDB:         c.Cache.RedisDB,
		KeyPrefix:       c.Cache.KeyPrefix,
		DefaultTTL:      c.Cache.TTL,
		CleanupInterval: def.CleanupInterval,
	}
}

// StorePath returns the SQLite database path, falling back to the
// platform default.
func (c *Config) StorePath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	return store.DefaultDBPath()
}
