package llm

import "context"

// Provider is the core abstraction for LLM interaction.
// Consumers call Generate with a Request and receive the model's raw text.
// Implementations translate vendor failures into ErrTransient, ErrPermanent
// or ErrUnknown and never retry on their own.
type Provider interface {
	// Generate sends a prompt to the LLM and returns its raw text output.
	// The request's Schema field, when set, asks the vendor to constrain
	// output to that schema through its native structured output mechanism.
	// The output is not validated here.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the vendor identifier, e.g. "anthropic" or "ollama".
	Name() string

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. Question generation sends a
	// single user message holding the chunk.
	Messages []Message

	// Schema is the JSON Schema the response should conform to.
	// When nil, the model is free to answer in any format.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (used as the schema name for OpenAI).
	// Kebab-case, e.g. "qa-bank".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any

	// Strict requests strict schema adherence where the vendor supports it.
	// Strict mode requires every property to be required, so schemas with
	// optional fields leave it off.
	Strict bool
}

// Response holds the LLM's output.
type Response struct {
	// Text is the generated output exactly as the vendor returned it.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens"
	StopReason string
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
