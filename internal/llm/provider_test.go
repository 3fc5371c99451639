package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/qagen/internal/store"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Text: `{"a":1}`, Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Text: `{"b":2}`},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp1.Text != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Text)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.Text != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Text)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var te *ErrTransient
	if !errors.As(err, &te) {
		t.Fatalf("expected ErrTransient, got: %T", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: `{}`})

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrPermanent{Reason: ReasonAuth}})

	_, err := mock.Generate(context.Background(), Request{})
	var pe *ErrPermanent
	if !errors.As(err, &pe) {
		t.Fatalf("expected ErrPermanent, got: %T", err)
	}
}

func TestMockHandler_ConcurrentCalls(t *testing.T) {
	mock := NewMockHandler("primary", func(_ context.Context, call int, req Request) (string, error) {
		return req.Messages[0].Content, nil
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := fmt.Sprintf("chunk-%d", i)
			resp, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: want}}})
			if err != nil || resp.Text != want {
				t.Errorf("got %v, %v; want %q", resp, err, want)
			}
		}()
	}
	wg.Wait()

	if mock.CallCount() != 20 {
		t.Fatalf("expected 20 calls, got %d", mock.CallCount())
	}
	if mock.Name() != "primary" || mock.ModelID() != "primary" {
		t.Fatalf("unexpected name/model %q %q", mock.Name(), mock.ModelID())
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}
	if id := RunIDFrom(ctx); id != "" {
		t.Fatalf("expected empty run id, got %q", id)
	}

	ctx = WithPurpose(WithRunID(ctx, "run-1"), "qa-gen")
	if p := PurposeFrom(ctx); p != "qa-gen" {
		t.Fatalf("expected 'qa-gen', got %q", p)
	}
	if id := RunIDFrom(ctx); id != "run-1" {
		t.Fatalf("expected 'run-1', got %q", id)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "no providers",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Providers: []string{"anthropic"}},
			wantErr: true,
		},
		{
			name:    "anthropic with key",
			cfg:     Config{Providers: []string{"anthropic"}, Anthropic: AnthropicConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name: "fallback chain",
			cfg: Config{
				Providers: []string{"openai", "groq", "ollama"},
				OpenAI:    OpenAIConfig{APIKey: "sk-test"},
				Groq:      CompatConfig{APIKey: "gsk-test"},
				Ollama:    OllamaConfig{Model: "llama3.2"},
			},
			wantErr: false,
		},
		{
			name:    "xai without key",
			cfg:     Config{Providers: []string{"xai"}},
			wantErr: true,
		},
		{
			name:    "duplicate provider",
			cfg:     Config{Providers: []string{"mock", "mock"}},
			wantErr: true,
		},
		{
			name:    "mock needs no key",
			cfg:     Config{Providers: []string{"mock"}},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Providers: []string{"unknown"}},
			wantErr: true,
		},
		{
			name: "bad rate limit",
			cfg: Config{
				Providers:  []string{"mock"},
				RateLimits: map[string]RateLimit{"mock": {RequestsPerSecond: 0, Burst: 1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"OPENROUTER_API_KEY", "XAI_API_KEY", "GROQ_API_KEY", "OLLAMA_HOST",
		"ANTHROPIC_MODEL_NAME", "OLLAMA_MODEL_NAME"} {
		t.Setenv(k, "")
	}

	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected no providers discovered")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GROQ_API_KEY", "gsk")
	t.Setenv("GEMINI_API_KEY", "gm")

	cfg, ok := DiscoverConfig()
	if !ok {
		t.Fatal("expected providers discovered")
	}
	want := []string{"gemini", "anthropic", "groq"}
	if fmt.Sprint(cfg.Providers) != fmt.Sprint(want) {
		t.Fatalf("providers = %v, want %v", cfg.Providers, want)
	}
	if cfg.Anthropic.APIKey != "sk-ant" || cfg.Groq.APIKey != "gsk" {
		t.Fatalf("keys not populated: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("discovered config should validate: %v", err)
	}
	if cfg.Anthropic.Model != DefaultConfig().Anthropic.Model {
		t.Errorf("anthropic model = %q, want default", cfg.Anthropic.Model)
	}

	t.Setenv("ANTHROPIC_MODEL_NAME", "claude-sonnet")
	t.Setenv("OLLAMA_MODEL_NAME", "qwen2.5:3b")
	cfg, _ = DiscoverConfig()
	if cfg.Anthropic.Model != "claude-sonnet" || cfg.Ollama.Model != "qwen2.5:3b" {
		t.Errorf("model names not read from env: anthropic=%q ollama=%q", cfg.Anthropic.Model, cfg.Ollama.Model)
	}
}

// fakeEventRepo records appended events.
type fakeEventRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (f *fakeEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, data)
	return f.err
}

func (f *fakeEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMRequestEventRecord, error) {
	return nil, nil
}

func (f *fakeEventRepo) GetLLMEvent(context.Context, int) (*store.LLMRequestEventRecord, error) {
	return nil, nil
}

func (f *fakeEventRepo) LLMUsageByPurpose(context.Context) ([]store.LLMUsageStats, error) {
	return nil, nil
}

func (f *fakeEventRepo) LLMUsageByModel(context.Context) ([]store.LLMModelUsage, error) {
	return nil, nil
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	repo := &fakeEventRepo{}
	mock := NewMockProvider(
		MockResponse{Text: `{"questions":[]}`, Usage: Usage{InputTokens: 12, OutputTokens: 3}},
		MockResponse{Err: &ErrTransient{Reason: ReasonTimeout, Err: errors.New("slow")}},
	)
	p := WithLogging(mock, repo)

	ctx := WithRunID(WithPurpose(context.Background(), "qa-gen"), "run-7")
	req := Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "chunk"}}}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected error")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	ok, failed := repo.events[0], repo.events[1]
	if !ok.Success || ok.InputTokens != 12 || ok.Purpose != "qa-gen" || ok.RunID != "run-7" || ok.Provider != "mock" {
		t.Errorf("unexpected success event: %+v", ok)
	}
	if ok.ResponseBody != `{"questions":[]}` {
		t.Errorf("unexpected response body %q", ok.ResponseBody)
	}
	if ok.RequestBody != "[system]\nsys\n\n[user]\nchunk\n\n" {
		t.Errorf("unexpected request body %q", ok.RequestBody)
	}
	if failed.Success || failed.ErrorMessage == "" {
		t.Errorf("unexpected failure event: %+v", failed)
	}
}

func TestLoggingProvider_RepoFailureDoesNotFailRequest(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockResponse{Text: "ok"}), repo)

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
}

func TestRateLimitedProvider(t *testing.T) {
	mock := NewMockHandler("mock", func(context.Context, int, Request) (string, error) { return "ok", nil })
	p := WithRateLimit(mock, RateLimit{RequestsPerSecond: 0.001, Burst: 1})

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first request should use the burst token: %v", err)
	}

	// The next token is ~1000s away, so a short deadline fails fast.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	var te *ErrTransient
	if !errors.As(err, &te) || te.Reason != ReasonRateLimited {
		t.Fatalf("expected rate limited ErrTransient, got %T (%v)", err, err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("limited request must not reach the provider, got %d calls", mock.CallCount())
	}
}

func TestNewProviders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = []string{"mock", "openai"}
	cfg.OpenAI.APIKey = "sk-test"
	cfg.RateLimits = map[string]RateLimit{"openai": {RequestsPerSecond: 5, Burst: 2}}

	providers, err := NewProviders(context.Background(), cfg, &fakeEventRepo{})
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	if _, ok := providers["openai"].(*RateLimitedProvider); !ok {
		t.Errorf("expected openai to be rate limited, got %T", providers["openai"])
	}
	if _, ok := providers["mock"].(*LoggingProvider); !ok {
		t.Errorf("expected mock to be logged, got %T", providers["mock"])
	}
	if providers["openai"].ModelID() != "gpt-4o-mini" || providers["openai"].Name() != "openai" {
		t.Errorf("unexpected openai provider %q/%q", providers["openai"].Name(), providers["openai"].ModelID())
	}

	cfg.Providers = []string{"anthropic"}
	if _, err := NewProviders(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected validation error for missing anthropic key")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		msg    string
		want   string // "transient:reason", "permanent:reason" or "unknown"
	}{
		{429, "slow down", "transient:" + ReasonRateLimited},
		{429, "You exceeded your current quota", "permanent:" + ReasonQuota},
		{408, "", "transient:" + ReasonTimeout},
		{502, "", "transient:" + ReasonUnavailable},
		{401, "", "permanent:" + ReasonAuth},
		{403, "", "permanent:" + ReasonAuth},
		{402, "", "permanent:" + ReasonQuota},
		{422, "", "permanent:" + ReasonInvalidRequest},
		{418, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d %s", tt.status, tt.msg), func(t *testing.T) {
			if got := describe(classifyStatus(tt.status, tt.msg, 0, errors.New("x"))); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	if err := classifyTransport(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation should pass through, got %v", err)
	}
	if got := describe(classifyTransport(fmt.Errorf("wrapped: %w", context.DeadlineExceeded))); got != "transient:"+ReasonTimeout {
		t.Errorf("deadline: got %s", got)
	}
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if got := describe(classifyTransport(opErr)); got != "transient:"+ReasonNetwork {
		t.Errorf("op error: got %s", got)
	}
	if got := describe(classifyTransport(errors.New("weird"))); got != "unknown" {
		t.Errorf("plain error: got %s", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	if d := parseRetryAfter(h); d != 0 {
		t.Errorf("missing header: got %s", d)
	}
	h.Set("Retry-After", "3")
	if d := parseRetryAfter(h); d != 3*time.Second {
		t.Errorf("seconds: got %s", d)
	}
	h.Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	if d := parseRetryAfter(h); d < 59*time.Minute || d > time.Hour {
		t.Errorf("date: got %s", d)
	}
}

func describe(err error) string {
	var te *ErrTransient
	var pe *ErrPermanent
	var ue *ErrUnknown
	switch {
	case errors.As(err, &te):
		return "transient:" + te.Reason
	case errors.As(err, &pe):
		return "permanent:" + pe.Reason
	case errors.As(err, &ue):
		return "unknown"
	}
	return fmt.Sprintf("unexpected %T", err)
}
