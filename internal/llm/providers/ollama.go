package providers

import (
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// NewOllamaProvider creates a provider backed by a local Ollama server.
func NewOllamaProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	opts := []ollama.Option{
		ollama.WithServerURL(serverURL),
	}
	if cfg.DefaultModel != "" {
		opts = append(opts, ollama.WithModel(cfg.DefaultModel))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}

	return &langchainProvider{
		name:   "ollama",
		client: client,
		config: cfg,
	}, nil
}
