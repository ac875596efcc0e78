package graph

import (
	"context"
	"math"
	"sort"

	"github.com/ermiller24/executive-layer/internal/types"
)

// MaxQueryRows caps the number of rows a structural or raw query may return.
const MaxQueryRows = 20

// Store is the knowledge graph store contract: typed nodes with
// per-kind unique names, relationships, and cosine vector queries over node
// embeddings.
//
// Node ids are backend-assigned and stable only within a process lifetime;
// external identity is the (kind, name) pair.
type Store interface {
	// SchemaInit creates uniqueness constraints for (kind, name), scalar
	// indexes on name, and cosine vector indexes for every kind. It is
	// idempotent.
	SchemaInit(ctx context.Context) error

	// CreateNode inserts a node and returns its id. Name collisions within a
	// kind fail with DUPLICATE_NAME; Knowledge nodes without a summary fail
	// with INVALID_ARGUMENTS.
	CreateNode(ctx context.Context, kind Kind, props NodeProps) (string, error)

	// SetEmbedding writes the embedding property of a node. Vectors whose
	// length differs from the configured dimension fail with
	// DIMENSION_MISMATCH.
	SetEmbedding(ctx context.Context, kind Kind, id string, vec []float64) error

	// CreateEdge creates relationship edges for the cross-product of source
	// and target names and returns the id of the last created edge.
	// Missing endpoints fail with NOT_FOUND.
	CreateEdge(ctx context.Context, srcKind Kind, srcNames []string, dstKind Kind, dstNames []string, relType, description string) (string, error)

	// Alter mutates or deletes a node. Deletion and field updates are
	// mutually exclusive; deletion detaches all incident edges.
	Alter(ctx context.Context, kind Kind, id string, del bool, fields map[string]any) error

	// FindNode returns a node by exact (kind, name), or NOT_FOUND.
	FindNode(ctx context.Context, kind Kind, name string) (*Node, error)

	// GetNode returns a node by id, or NOT_FOUND.
	GetNode(ctx context.Context, kind Kind, id string) (*Node, error)

	// StructuralQuery executes MATCH/WHERE/RETURN fragments with parameters,
	// capped at MaxQueryRows rows.
	StructuralQuery(ctx context.Context, matchClause, whereClause, returnClause string, params map[string]any) ([]map[string]any, error)

	// VectorQuery returns the top-k nodes of the kind most similar to the
	// query vector, descending by score, ties broken by lower id. Only nodes
	// with an embedding are eligible.
	VectorQuery(ctx context.Context, kind Kind, queryVec []float64, k int, minScore float64) ([]VectorHit, error)

	// HybridQuery ranks source nodes by vector similarity and joins each
	// through relType to targets of dstKind.
	HybridQuery(ctx context.Context, srcKind Kind, queryVec []float64, relType string, dstKind Kind, k int, minScore float64) ([]HybridHit, error)

	// RawQuery executes an arbitrary Cypher query, capped at MaxQueryRows rows.
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)

	// Health returns the store's health status.
	Health(ctx context.Context) types.HealthStatus

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// CosineSimilarity computes the cosine similarity of two vectors, clamped to
// [0, 1]. Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// sortHits orders vector hits by descending score, breaking ties by lower id.
func sortHits(hits []VectorHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}
