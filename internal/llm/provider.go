// Package llm abstracts chat completion providers behind a single interface
// with blocking and streaming calls. Providers are backed by langchaingo
// clients; a scripted mock backs the test suites.
package llm

import (
	"context"

	"github.com/ermiller24/executive-layer/internal/types"
)

// Provider is the contract every LLM backend implements.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic", "ollama")
	Name() string

	// Complete sends a completion request and returns the full response.
	// This is a blocking call that waits for the entire response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends a completion request and streams the response as it's
	// generated. The returned channel emits StreamChunk items, ending with a
	// terminal chunk carrying a FinishReason or an Error, then closes.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Health checks the health status of the provider and its connectivity
	Health(ctx context.Context) types.HealthStatus
}

// ProviderConfig selects and configures a provider backend.
type ProviderConfig struct {
	// Type is the backend name: "openai", "anthropic", "ollama", or "mock".
	Type string

	// DefaultModel is used when a request does not name a model.
	DefaultModel string

	// APIKey authenticates against the backend. Empty falls back to the
	// backend's conventional environment variable.
	APIKey string

	// BaseURL overrides the backend endpoint, for OpenAI-compatible servers.
	BaseURL string
}
