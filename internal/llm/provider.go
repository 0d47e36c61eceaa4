package llm

import (
	"context"
	"encoding/json"
)

// Provider is the content provider boundary. The learning pipeline builds a
// Request (prompt plus optional output schema) and receives either opaque
// narrative text or schema-conforming JSON.
type Provider interface {
	// Generate sends a prompt to the model and returns its response.
	// When req.Schema is set the provider uses its native structured output
	// mechanism and validates the returned JSON against the schema before
	// returning it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. Sets the model's role and constraints.
	System string

	// Messages is the conversation history. Every pipeline operation is a
	// single request/response exchange, so this holds one user message.
	Messages []Message

	// Schema is the output constraint. When nil the response Content is the
	// raw text of the reply.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
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

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (used as schema name for OpenAI and as the
	// compiled-schema cache key). Kebab-case, e.g. "learning-path".
	Name string

	// Description is a human-readable description of what this schema
	// represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any

	// Envelope, when set, is the object key a bare array reply is wrapped
	// under before validation, for schemas whose root is an object holding
	// one list.
	Envelope string
}

// Response holds the model's output.
type Response struct {
	// Content is the generated output. With a Schema this is the validated
	// JSON document, unfenced and wrapped in the schema's envelope; without one it is the reply text as-is. An empty
	// Content means the provider returned no text.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Text returns Content as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
