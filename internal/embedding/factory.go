package embedding

import (
	"fmt"

	"github.com/ermiller24/executive-layer/internal/config"
	"github.com/ermiller24/executive-layer/internal/types"
)

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "native":
		return NewNativeProvider(cfg.Dimension)
	case "mock":
		return NewMockProvider(cfg.Dimension), nil
	default:
		return nil, types.NewError(ErrCodeInvalidConfig,
			fmt.Sprintf("unknown embedding provider: %s", cfg.Provider))
	}
}
