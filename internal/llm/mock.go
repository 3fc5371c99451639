package llm

import (
	"context"
	"errors"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Text  string
	Usage Usage
	Err   error

	// StopReason defaults to StopEnd.
	StopReason string
}

// MockHandler computes a response for the call'th request (zero based).
// It runs without the provider lock held, so it may block on ctx.
type MockHandler func(ctx context.Context, call int, req Request) (string, error)

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order, or delegates to a handler,
// and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses []MockResponse
	handler   MockHandler
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{name: "mock", responses: responses}
}

// NewMockHandler creates a MockProvider named name whose responses come
// from h. Useful when calls arrive concurrently and FIFO order is not
// deterministic.
func NewMockHandler(name string, h MockHandler) *MockProvider {
	return &MockProvider{name: name, handler: h}
}

// Generate returns the next canned response or an ErrTransient if the
// queue is empty.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	call := len(m.Calls)
	m.Calls = append(m.Calls, req)

	if m.handler != nil {
		h := m.handler
		m.mu.Unlock()
		text, err := h(ctx, call, req)
		if err != nil {
			return nil, err
		}
		return &Response{Text: text, Model: m.name, StopReason: StopEnd}, nil
	}
	defer m.mu.Unlock()

	if len(m.responses) == 0 {
		return nil, &ErrTransient{Reason: ReasonUnavailable, Err: errors.New("mock: no responses queued")}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	stop := resp.StopReason
	if stop == "" {
		stop = StopEnd
	}
	return &Response{
		Text:       resp.Text,
		Usage:      resp.Usage,
		Model:      m.name,
		StopReason: stop,
	}, nil
}

// Name returns the name the mock was created with.
func (m *MockProvider) Name() string { return m.name }

// ModelID returns the mock's name.
func (m *MockProvider) ModelID() string {
	return m.name
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
