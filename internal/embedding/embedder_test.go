package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ermiller24/executive-layer/internal/types"
)

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestAdaptVectorTruncatesAndPads(t *testing.T) {
	long := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{1, 2, 3}, AdaptVector(long, 3))

	short := []float64{1, 2}
	assert.Equal(t, []float64{1, 2, 0, 0}, AdaptVector(short, 4))
}

func TestAdaptVectorCoercesNaNAndInf(t *testing.T) {
	raw := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0.5}
	assert.Equal(t, []float64{0, 0, 0, 0.5}, AdaptVector(raw, 4))
}

func TestMeanPool(t *testing.T) {
	tokens := [][]float64{
		{1, 2},
		{3, 4},
	}
	assert.Equal(t, []float64{2, 3}, MeanPool(tokens, 2))
	assert.Equal(t, []float64{0, 0}, MeanPool(nil, 2))
}

func TestMockProviderDeterministic(t *testing.T) {
	m := NewMockProvider(64)
	ctx := context.Background()

	a, err := m.Embed(ctx, "quantum computing")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "quantum computing")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestMockProviderTokenOverlapSimilarity(t *testing.T) {
	m := NewMockProvider(128)
	ctx := context.Background()

	base, err := m.Embed(ctx, "quantum computing research")
	require.NoError(t, err)
	similar, err := m.Embed(ctx, "quantum computing")
	require.NoError(t, err)
	unrelated, err := m.Embed(ctx, "french cooking recipes")
	require.NoError(t, err)

	simScore := cosine(base, similar)
	farScore := cosine(base, unrelated)
	assert.Greater(t, simScore, farScore)
	assert.Greater(t, simScore, 0.6)
}

func TestMockProviderInjectedError(t *testing.T) {
	m := NewMockProvider(8)
	m.SetEmbedError(types.NewError(ErrCodeEmbeddingFailed, "boom"))

	_, err := m.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, ErrCodeEmbeddingFailed))
	assert.True(t, m.Health(context.Background()).IsUnhealthy())
}
