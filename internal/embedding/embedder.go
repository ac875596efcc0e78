// Package embedding provides text-to-vector embedding generation for the
// knowledge graph. The native provider runs all-MiniLM-L6-v2 locally via
// GoMLX; a deterministic mock backs the test suites.
package embedding

import (
	"context"
	"math"

	"github.com/ermiller24/executive-layer/internal/types"
)

// Provider generates embedding vectors from text content.
// Implementations must be thread-safe for concurrent access.
type Provider interface {
	// Embed generates an embedding vector for a single text. The returned
	// vector always has exactly Dimensions() entries.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the dimensionality of embedding vectors.
	Dimensions() int

	// Model returns the name of the embedding model being used.
	Model() string

	// Health returns the health status of the provider.
	Health(ctx context.Context) types.HealthStatus
}

// AdaptVector normalizes a raw model output vector to exactly dim entries.
// Shorter vectors are zero-padded, longer vectors truncated. NaN and Inf
// entries are coerced to 0 so they cannot poison cosine scores.
func AdaptVector(raw []float64, dim int) []float64 {
	out := make([]float64, dim)
	n := len(raw)
	if n > dim {
		n = dim
	}
	for i := 0; i < n; i++ {
		v := raw[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}

// MeanPool collapses a per-token tensor of shape [T][D] into a single [D]
// vector by averaging across the token axis. An empty input yields a zero
// vector of length dim.
func MeanPool(tokens [][]float64, dim int) []float64 {
	out := make([]float64, dim)
	if len(tokens) == 0 {
		return out
	}
	for _, tok := range tokens {
		n := len(tok)
		if n > dim {
			n = dim
		}
		for i := 0; i < n; i++ {
			out[i] += tok[i]
		}
	}
	inv := 1.0 / float64(len(tokens))
	for i := range out {
		out[i] *= inv
	}
	return out
}
