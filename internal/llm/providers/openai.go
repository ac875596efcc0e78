package providers

import (
	"os"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// NewOpenAIProvider creates a provider backed by the OpenAI chat API, or any
// OpenAI-compatible server when BaseURL is set.
func NewOpenAIProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewAuthError("openai", nil)
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
	}
	if cfg.DefaultModel != "" {
		opts = append(opts, openai.WithModel(cfg.DefaultModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("openai", err)
	}

	return &langchainProvider{
		name:   "openai",
		client: client,
		config: cfg,
	}, nil
}
