package providers

import (
	"fmt"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// NewProvider creates an LLM provider from the configuration.
func NewProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAIProvider(cfg)

	case "anthropic":
		return NewAnthropicProvider(cfg)

	case "ollama":
		return NewOllamaProvider(cfg)

	case "googleai", "google":
		return NewGoogleAIProvider(cfg)

	case "mock":
		return NewMockProvider(), nil

	default:
		return nil, llm.NewInvalidRequestError(
			fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}
