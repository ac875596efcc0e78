package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/ermiller24/executive-layer/internal/llm"
)

// NewGoogleAIProvider creates a provider backed by Google's Gemini models.
func NewGoogleAIProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewAuthError("googleai", nil)
	}

	opts := []googleai.Option{
		googleai.WithAPIKey(apiKey),
	}
	if cfg.DefaultModel != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.DefaultModel))
	}

	client, err := googleai.New(context.Background(), opts...)
	if err != nil {
		return nil, llm.TranslateError("googleai", err)
	}

	return &langchainProvider{
		name:   "googleai",
		client: client,
		config: cfg,
	}, nil
}
