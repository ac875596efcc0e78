package embedding

import "github.com/ermiller24/executive-layer/internal/types"

// Embedding error codes
const (
	ErrCodeEmbedderUnavailable types.ErrorCode = types.EMBEDDER_UNAVAILABLE
	ErrCodeEmbeddingFailed     types.ErrorCode = "EMBEDDING_FAILED"
	ErrCodeInvalidConfig       types.ErrorCode = "INVALID_EMBEDDER_CONFIG"
)
