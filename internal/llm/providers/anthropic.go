package providers

import (
	"os"

	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// NewAnthropicProvider creates a provider backed by Anthropic's Claude models.
func NewAnthropicProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewAuthError("anthropic", nil)
	}

	opts := []anthropic.Option{
		anthropic.WithToken(apiKey),
	}
	if cfg.DefaultModel != "" {
		opts = append(opts, anthropic.WithModel(cfg.DefaultModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("anthropic", err)
	}

	return &langchainProvider{
		name:   "anthropic",
		client: client,
		config: cfg,
	}, nil
}
