// Package llm defines the Provider interface for Large Language Model backends
// that act as remote grammar and coherence judges.
//
// A provider wraps a remote or local model API (OpenAI, Anthropic, Gemini, a
// local Ollama instance, ...) behind a single blocking completion call so the
// judges never couple to a specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a conversation.
type Message struct {
	// Role is one of [RoleSystem], [RoleUser] or [RoleAssistant].
	Role    string
	Content string
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is sent as a leading system-role message when non-empty.
	SystemPrompt string

	Messages []Message

	// Temperature in [0.0, 2.0]. Zero leaves the provider default in place.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full reply to a [CompletionRequest].
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// ModelCapabilities describes static limits of the configured model.
type ModelCapabilities struct {
	ContextWindow   int
	MaxOutputTokens int
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Context cancellation must be honoured promptly.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns metadata that is constant for the lifetime of the
	// provider.
	Capabilities() ModelCapabilities
}

// EstimateTokens approximates the prompt size of req at roughly four
// characters per token plus a small per-message overhead. It never
// undercounts by much for English text.
func EstimateTokens(req CompletionRequest) int {
	total := (len(req.SystemPrompt) + 3) / 4
	for _, m := range req.Messages {
		total += (len(m.Content)+3)/4 + 4
	}
	return total
}
