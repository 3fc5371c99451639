package llm

import (
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "google/gemini-2.0-flash-exp",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "google/gemini-2.0-flash-exp" {
			t.Errorf("model = %q, want %q", p.ModelID(), "google/gemini-2.0-flash-exp")
		}
		if p.Name() != "openrouter" {
			t.Errorf("name = %q, want %q", p.Name(), "openrouter")
		}
		if p.format != formatJSONSchema {
			t.Errorf("expected json_schema response format")
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		_, err := NewOpenRouterProvider(OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		})
		if err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("custom model pass-through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "anthropic/claude-3-haiku",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Model ID should be used as-is (no friendly-name mapping).
		if p.ModelID() != "anthropic/claude-3-haiku" {
			t.Errorf("model = %q, want %q", p.ModelID(), "anthropic/claude-3-haiku")
		}
	})
}

func TestCompatProviders(t *testing.T) {
	tests := []struct {
		name    string
		newFunc func(CompatConfig) (*OpenAIProvider, error)
	}{
		{"xai", NewXAIProvider},
		{"groq", NewGroqProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.newFunc(CompatConfig{APIKey: "key", Model: "some-model"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.name {
				t.Errorf("name = %q, want %q", p.Name(), tt.name)
			}
			if p.ModelID() != "some-model" {
				t.Errorf("model = %q, want %q", p.ModelID(), "some-model")
			}
			if p.format != formatJSONObject {
				t.Errorf("expected json_object response format")
			}

			if _, err := tt.newFunc(CompatConfig{Model: "some-model"}); err == nil {
				t.Fatal("expected error for empty API key")
			}
		})
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault("", defaultGroqBaseURL); got != defaultGroqBaseURL {
		t.Errorf("orDefault empty = %q", got)
	}
	if got := orDefault("http://x", defaultGroqBaseURL); got != "http://x" {
		t.Errorf("orDefault set = %q", got)
	}
}
