package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/ermiller24/executive-layer/internal/types"
)

// MockProvider is a deterministic Provider implementation for testing. The
// same text always produces the same vector, and texts sharing tokens score
// high cosine similarity, so round-trip and k-NN ordering tests behave like
// they would against a real model.
type MockProvider struct {
	mu         sync.RWMutex
	dimensions int
	embedErr   error
	calls      []string
}

// NewMockProvider creates a mock provider emitting vectors of the given
// dimension.
func NewMockProvider(dimensions int) *MockProvider {
	return &MockProvider{
		dimensions: dimensions,
	}
}

// Embed generates a deterministic embedding derived from the text's tokens.
// Each lowercased token is hashed into the vector space and the token vectors
// are summed and normalized, so token overlap translates into cosine
// similarity.
func (m *MockProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	err := m.embedErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(ErrCodeEmbeddingFailed, "context canceled", err)
	}

	vec := make([]float64, m.dimensions)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		for i := 0; i+8 <= len(sum); i += 8 {
			idx := int(binary.BigEndian.Uint32(sum[i:i+4])) % m.dimensions
			if idx < 0 {
				idx += m.dimensions
			}
			// Signed contribution keeps distinct tokens roughly orthogonal.
			sign := 1.0
			if sum[i+4]&1 == 1 {
				sign = -1.0
			}
			vec[idx] += sign * (1.0 + float64(sum[i+5])/255.0)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		inv := 1.0 / math.Sqrt(norm)
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec, nil
}

// Dimensions returns the configured vector dimension.
func (m *MockProvider) Dimensions() int {
	return m.dimensions
}

// Model returns the mock model name.
func (m *MockProvider) Model() string {
	return "mock-embedder"
}

// Health reports the mock as healthy unless a failure has been injected.
func (m *MockProvider) Health(ctx context.Context) types.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.embedErr != nil {
		return types.Unhealthy("injected embed failure")
	}
	return types.Healthy("mock embedder")
}

// SetEmbedError injects an error returned by subsequent Embed calls. Pass nil
// to clear.
func (m *MockProvider) SetEmbedError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
}

// Calls returns the texts passed to Embed, in order.
func (m *MockProvider) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
