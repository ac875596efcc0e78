// Package knowledge is the contract layer over the graph store: a closed set
// of tool calls consumable by the workers and the debug API. It owns
// embedding generation for node names and the BELONGS_TO parent convention.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ermiller24/executive-layer/internal/embedding"
	"github.com/ermiller24/executive-layer/internal/graph"
	"github.com/ermiller24/executive-layer/internal/types"
)

// RelBelongsTo is the reserved parent relationship.
const RelBelongsTo = "BELONGS_TO"

// Tools executes knowledge tool calls against a graph store and an embedding
// provider. It is safe for concurrent use.
type Tools struct {
	store    graph.Store
	embedder embedding.Provider
	logger   *slog.Logger
}

// NewTools creates a Tools layer over the given store and embedder.
func NewTools(store graph.Store, embedder embedding.Provider, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Store exposes the underlying graph store for health checks.
func (t *Tools) Store() graph.Store {
	return t.store
}

// Dispatch executes a tool call and returns its variant-specific result:
// NodeResult, EdgeResult, nil, []map[string]any, []graph.VectorHit, or
// []graph.HybridHit.
func (t *Tools) Dispatch(ctx context.Context, call ToolCall) (any, error) {
	switch c := call.(type) {
	case CreateNodeCall:
		return t.CreateNode(ctx, c)
	case CreateEdgeCall:
		return t.CreateEdge(ctx, c)
	case AlterCall:
		return nil, t.Alter(ctx, c)
	case StructuralSearchCall:
		return t.StructuralSearch(ctx, c)
	case VectorSearchCall:
		return t.VectorSearch(ctx, c)
	case HybridSearchCall:
		return t.HybridSearch(ctx, c)
	case RawQueryCall:
		return t.RawQuery(ctx, c)
	default:
		return nil, types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("unknown tool call type %T", call))
	}
}

// CreateNode creates a node, embeds its name, and attaches BELONGS_TO edges
// to the named parents. The node and its parent links stand or fall together:
// a failed link rolls the node back. Embedding failure is tolerated: the node
// is created without an embedding and stays invisible to vector queries.
func (t *Tools) CreateNode(ctx context.Context, call CreateNodeCall) (NodeResult, error) {
	parentKind := call.ParentKind
	if len(call.BelongsTo) > 0 {
		if parentKind == "" {
			parentKind = defaultParentKind(call.Kind)
		}
		if parentKind == "" {
			return NodeResult{}, types.NewError(types.INVALID_ARGUMENTS,
				fmt.Sprintf("%s nodes have no default parent kind", call.Kind))
		}
	}

	id, err := t.store.CreateNode(ctx, call.Kind, graph.NodeProps{
		Name:        call.Name,
		Description: call.Description,
		Summary:     call.Summary,
		Extra:       call.Extra,
	})
	if err != nil {
		return NodeResult{}, err
	}

	result := NodeResult{ID: id, Name: call.Name}
	result.Embedded = t.embedName(ctx, call.Kind, id, call.Name)

	if len(call.BelongsTo) > 0 {
		_, err = t.store.CreateEdge(ctx, call.Kind, []string{call.Name},
			parentKind, call.BelongsTo, RelBelongsTo, "")
		if err != nil {
			if delErr := t.store.Alter(ctx, call.Kind, id, true, nil); delErr != nil {
				t.logger.Warn("failed to roll back node after parent link failure",
					"kind", call.Kind, "name", call.Name, "error", delErr)
			}
			return NodeResult{}, err
		}
	}

	return result, nil
}

// CreateEdge creates the cross-product of edges between the named nodes.
func (t *Tools) CreateEdge(ctx context.Context, call CreateEdgeCall) (EdgeResult, error) {
	lastID, err := t.store.CreateEdge(ctx, call.SrcKind, call.SrcNames,
		call.DstKind, call.DstNames, call.Relationship, call.Description)
	if err != nil {
		return EdgeResult{}, err
	}
	return EdgeResult{LastEdgeID: lastID}, nil
}

// Alter mutates or deletes a node. A name change regenerates the embedding
// from the new name.
func (t *Tools) Alter(ctx context.Context, call AlterCall) error {
	if err := t.store.Alter(ctx, call.Kind, call.ID, call.Delete, call.Fields); err != nil {
		return err
	}

	if !call.Delete {
		if newName, ok := call.Fields["name"].(string); ok && newName != "" {
			t.embedName(ctx, call.Kind, call.ID, newName)
		}
	}

	return nil
}

// StructuralSearch runs a structural query, capped at 20 rows.
func (t *Tools) StructuralSearch(ctx context.Context, call StructuralSearchCall) ([]map[string]any, error) {
	return t.store.StructuralQuery(ctx, call.Match, call.Where, call.Return, call.Params)
}

// VectorSearch embeds the text and returns the top-k similar nodes.
func (t *Tools) VectorSearch(ctx context.Context, call VectorSearchCall) ([]graph.VectorHit, error) {
	if call.Text == "" {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "search text cannot be empty")
	}

	k := call.K
	if k <= 0 {
		k = DefaultSearchK
	}
	minScore := call.MinScore
	if !call.MinScoreSet && minScore == 0 {
		minScore = DefaultMinScore
	}

	vec, err := t.embedder.Embed(ctx, call.Text)
	if err != nil {
		return nil, types.WrapError(types.EMBEDDER_UNAVAILABLE,
			"failed to embed search text", err)
	}

	return t.store.VectorQuery(ctx, call.Kind, vec, k, minScore)
}

// HybridSearch embeds the text, ranks SrcKind sources, and joins each through
// the relationship to DstKind targets.
func (t *Tools) HybridSearch(ctx context.Context, call HybridSearchCall) ([]graph.HybridHit, error) {
	if call.Text == "" {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "search text cannot be empty")
	}

	k := call.K
	if k <= 0 {
		k = DefaultSearchK
	}
	minScore := call.MinScore
	if !call.MinScoreSet && minScore == 0 {
		minScore = DefaultMinScore
	}

	vec, err := t.embedder.Embed(ctx, call.Text)
	if err != nil {
		return nil, types.WrapError(types.EMBEDDER_UNAVAILABLE,
			"failed to embed search text", err)
	}

	return t.store.HybridQuery(ctx, call.SrcKind, vec, call.Relationship, call.DstKind, k, minScore)
}

// RawQuery runs an arbitrary query, capped at 20 rows.
func (t *Tools) RawQuery(ctx context.Context, call RawQueryCall) ([]map[string]any, error) {
	return t.store.RawQuery(ctx, call.Query)
}

// FindNode returns a node by exact (kind, name).
func (t *Tools) FindNode(ctx context.Context, kind graph.Kind, name string) (*graph.Node, error) {
	return t.store.FindNode(ctx, kind, name)
}

// embedName generates and stores the embedding for a node name, reporting
// success. Failures are logged and swallowed.
func (t *Tools) embedName(ctx context.Context, kind graph.Kind, id, name string) bool {
	vec, err := t.embedder.Embed(ctx, name)
	if err != nil {
		t.logger.Warn("embedding generation failed, node excluded from vector queries",
			"kind", kind, "name", name, "error", err)
		return false
	}

	if err := t.store.SetEmbedding(ctx, kind, id, vec); err != nil {
		t.logger.Warn("failed to store embedding",
			"kind", kind, "name", name, "error", err)
		return false
	}

	return true
}
