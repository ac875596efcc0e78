package graph

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ermiller24/executive-layer/internal/types"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(4)
}

func mustCreate(t *testing.T, s *MemoryStore, kind Kind, props NodeProps, vec []float64) string {
	t.Helper()
	id, err := s.CreateNode(context.Background(), kind, props)
	require.NoError(t, err)
	if vec != nil {
		require.NoError(t, s.SetEmbedding(context.Background(), kind, id, vec))
	}
	return id
}

func TestCreateNodeDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateNode(ctx, KindTopic, NodeProps{Name: "golang", Description: "the language"})
	require.NoError(t, err)

	_, err = s.CreateNode(ctx, KindTopic, NodeProps{Name: "golang", Description: "again"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DUPLICATE_NAME))

	// Same name under a different kind is fine.
	_, err = s.CreateNode(ctx, KindTag, NodeProps{Name: "golang", Description: "tag"})
	assert.NoError(t, err)
}

func TestCreateKnowledgeRequiresSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateNode(ctx, KindKnowledge, NodeProps{Name: "fact", Description: "d"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))

	_, err = s.CreateNode(ctx, KindKnowledge, NodeProps{Name: "fact", Description: "d", Summary: "s"})
	assert.NoError(t, err)
}

func TestSetEmbeddingDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, KindTopic, NodeProps{Name: "a", Description: "d"}, nil)

	err := s.SetEmbedding(ctx, KindTopic, id, []float64{1, 0, 0})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DIMENSION_MISMATCH))

	err = s.SetEmbedding(ctx, KindTopic, "node:99999999", []float64{1, 0, 0, 0})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.NOT_FOUND))

	assert.NoError(t, s.SetEmbedding(ctx, KindTopic, id, []float64{1, 0, 0, 0}))
}

func TestVectorQueryRankingAndThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, KindTopic, NodeProps{Name: "exact", Description: "d"}, []float64{1, 0, 0, 0})
	mustCreate(t, s, KindTopic, NodeProps{Name: "close", Description: "d"}, []float64{0.9, 0.1, 0, 0})
	mustCreate(t, s, KindTopic, NodeProps{Name: "orthogonal", Description: "d"}, []float64{0, 1, 0, 0})
	mustCreate(t, s, KindTopic, NodeProps{Name: "unembedded", Description: "d"}, nil)

	hits, err := s.VectorQuery(ctx, KindTopic, []float64{1, 0, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].Name)
	assert.Equal(t, "close", hits[1].Name)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorQueryTieBreakByLowerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Identical embeddings produce identical scores; the earlier node (lower
	// id) must come first.
	first := mustCreate(t, s, KindTopic, NodeProps{Name: "first", Description: "d"}, []float64{0, 0, 1, 0})
	second := mustCreate(t, s, KindTopic, NodeProps{Name: "second", Description: "d"}, []float64{0, 0, 1, 0})
	require.Less(t, first, second)

	hits, err := s.VectorQuery(ctx, KindTopic, []float64{0, 0, 1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, first, hits[0].ID)
	assert.Equal(t, second, hits[1].ID)
}

func TestVectorQueryTopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, n := range []struct {
		name string
		x    float64
	}{{"a", 1.0}, {"b", 0.8}, {"c", 0.6}, {"d", 0.4}} {
		mustCreate(t, s, KindKnowledge,
			NodeProps{Name: n.name, Description: "d", Summary: "s"},
			[]float64{n.x, 1 - n.x, 0, 0})
	}

	hits, err := s.VectorQuery(ctx, KindKnowledge, []float64{1, 0, 0, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Name)
	assert.Equal(t, "b", hits[1].Name)

	_, err = s.VectorQuery(ctx, KindKnowledge, []float64{1, 0, 0, 0}, 0, 0)
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))
}

func TestCreateEdgeCrossProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, KindTopic, NodeProps{Name: "t1", Description: "d"}, nil)
	mustCreate(t, s, KindTopic, NodeProps{Name: "t2", Description: "d"}, nil)
	mustCreate(t, s, KindKnowledge, NodeProps{Name: "k1", Description: "d", Summary: "s"}, nil)
	mustCreate(t, s, KindKnowledge, NodeProps{Name: "k2", Description: "d", Summary: "s"}, nil)

	last, err := s.CreateEdge(ctx, KindTopic, []string{"t1", "t2"}, KindKnowledge, []string{"k1", "k2"}, "DESCRIBES", "links")
	require.NoError(t, err)
	assert.NotEmpty(t, last)
	assert.Len(t, s.edges, 4)

	_, err = s.CreateEdge(ctx, KindTopic, []string{"missing"}, KindKnowledge, []string{"k1"}, "DESCRIBES", "")
	assert.True(t, types.HasCode(err, types.NOT_FOUND))

	_, err = s.CreateEdge(ctx, KindTopic, []string{"t1"}, KindKnowledge, []string{"k1"}, "BAD TYPE", "")
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))

	_, err = s.CreateEdge(ctx, KindTopic, nil, KindKnowledge, []string{"k1"}, "DESCRIBES", "")
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))
}

func TestAlterDeleteDetachesEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	topicID := mustCreate(t, s, KindTopic, NodeProps{Name: "t", Description: "d"}, nil)
	mustCreate(t, s, KindKnowledge, NodeProps{Name: "k", Description: "d", Summary: "s"}, nil)
	_, err := s.CreateEdge(ctx, KindTopic, []string{"t"}, KindKnowledge, []string{"k"}, "DESCRIBES", "")
	require.NoError(t, err)
	require.Len(t, s.edges, 1)

	require.NoError(t, s.Alter(ctx, KindTopic, topicID, true, nil))
	assert.Empty(t, s.edges)

	_, err = s.GetNode(ctx, KindTopic, topicID)
	assert.True(t, types.HasCode(err, types.NOT_FOUND))

	// Name is freed for reuse.
	_, err = s.CreateNode(ctx, KindTopic, NodeProps{Name: "t", Description: "d"})
	assert.NoError(t, err)
}

func TestAlterFieldUpdatesAndRenameCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, KindTag, NodeProps{Name: "old", Description: "d"}, nil)
	mustCreate(t, s, KindTag, NodeProps{Name: "taken", Description: "d"}, nil)

	err := s.Alter(ctx, KindTag, id, true, map[string]any{"name": "x"})
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))

	err = s.Alter(ctx, KindTag, id, false, nil)
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))

	err = s.Alter(ctx, KindTag, id, false, map[string]any{"name": "taken"})
	assert.True(t, types.HasCode(err, types.DUPLICATE_NAME))

	require.NoError(t, s.Alter(ctx, KindTag, id, false, map[string]any{
		"name":        "renamed",
		"description": "updated",
	}))

	node, err := s.FindNode(ctx, KindTag, "renamed")
	require.NoError(t, err)
	assert.Equal(t, id, node.ID)
	assert.Equal(t, "updated", node.Description)

	_, err = s.FindNode(ctx, KindTag, "old")
	assert.True(t, types.HasCode(err, types.NOT_FOUND))
}

func TestHybridQueryJoinsThroughRelationship(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, KindTopic, NodeProps{Name: "relevant", Description: "d"}, []float64{1, 0, 0, 0})
	mustCreate(t, s, KindTopic, NodeProps{Name: "irrelevant", Description: "d"}, []float64{0, 1, 0, 0})
	mustCreate(t, s, KindKnowledge, NodeProps{Name: "fact-a", Description: "d", Summary: "s"}, nil)
	mustCreate(t, s, KindKnowledge, NodeProps{Name: "fact-b", Description: "d", Summary: "s"}, nil)

	_, err := s.CreateEdge(ctx, KindTopic, []string{"relevant"}, KindKnowledge, []string{"fact-a", "fact-b"}, "DESCRIBES", "")
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, KindTopic, []string{"irrelevant"}, KindKnowledge, []string{"fact-a"}, "DESCRIBES", "")
	require.NoError(t, err)

	hits, err := s.HybridQuery(ctx, KindTopic, []float64{1, 0, 0, 0}, "DESCRIBES", KindKnowledge, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	names := []string{hits[0].TargetName, hits[1].TargetName}
	assert.ElementsMatch(t, []string{"fact-a", "fact-b"}, names)
	for _, h := range hits {
		assert.Equal(t, "relevant", h.SourceName)
		assert.Equal(t, "DESCRIBES", h.Relationship)
	}
}

func TestStructuralQueryCapsRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxQueryRows+5; i++ {
		mustCreate(t, s, KindTag, NodeProps{Name: string(rune('a'+i%26)) + string(rune('0'+i/26)), Description: "d"}, nil)
	}

	rows, err := s.StructuralQuery(ctx, "(n:Tag)", "", "n.name", nil)
	require.NoError(t, err)
	assert.Len(t, rows, MaxQueryRows)

	_, err = s.StructuralQuery(ctx, "", "", "", nil)
	assert.True(t, types.HasCode(err, types.INVALID_ARGUMENTS))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}))
	// Negative similarity clamps to zero.
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}))
	// Mismatched lengths and zero vectors score zero.
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 0}))
	// Scale invariance.
	a := []float64{0.3, 0.4, 0.5}
	b := []float64{0.6, 0.8, 1.0}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	assert.False(t, math.IsNaN(CosineSimilarity(a, b)))
}
