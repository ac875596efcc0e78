package knowledge

import "github.com/ermiller24/executive-layer/internal/graph"

// Search defaults applied when a call leaves k or minScore unset.
const (
	DefaultSearchK  = 10
	DefaultMinScore = 0.7
)

// ToolCall is the closed set of knowledge tool invocations. Each variant
// carries explicit argument shapes; Tools.Dispatch is the single entry point.
type ToolCall interface {
	isToolCall()
}

// CreateNodeCall creates a node, generates its embedding from the name, and
// attaches BELONGS_TO edges to the named parents.
type CreateNodeCall struct {
	Kind        graph.Kind     `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Summary     string         `json:"summary,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`

	// BelongsTo names parent nodes; one BELONGS_TO edge is created per
	// parent. ParentKind defaults to the kind one level up the hierarchy
	// (Knowledge -> Topic, Topic -> Tag, Tag -> TagCategory).
	BelongsTo  []string   `json:"belongs_to,omitempty"`
	ParentKind graph.Kind `json:"parent_kind,omitempty"`
}

// CreateEdgeCall creates the cross-product of edges between named nodes.
type CreateEdgeCall struct {
	SrcKind      graph.Kind `json:"src_kind"`
	SrcNames     []string   `json:"src_names"`
	DstKind      graph.Kind `json:"dst_kind"`
	DstNames     []string   `json:"dst_names"`
	Relationship string     `json:"relationship"`
	Description  string     `json:"description,omitempty"`
}

// AlterCall mutates or deletes a node. Delete and Fields are mutually
// exclusive. A name change regenerates the node's embedding.
type AlterCall struct {
	Kind   graph.Kind     `json:"kind"`
	ID     string         `json:"id"`
	Delete bool           `json:"delete,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// StructuralSearchCall runs a MATCH/WHERE/RETURN query, capped at 20 rows.
type StructuralSearchCall struct {
	Match  string         `json:"match"`
	Where  string         `json:"where,omitempty"`
	Return string         `json:"return,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// VectorSearchCall embeds Text and returns the top-k similar nodes of Kind.
type VectorSearchCall struct {
	Kind     graph.Kind `json:"kind"`
	Text     string     `json:"text"`
	K        int        `json:"k,omitempty"`
	MinScore float64    `json:"min_score,omitempty"`

	// MinScoreSet distinguishes an explicit zero threshold from the default.
	MinScoreSet bool `json:"-"`
}

// HybridSearchCall ranks SrcKind nodes by similarity to Text and joins each
// through Relationship to DstKind targets.
type HybridSearchCall struct {
	SrcKind      graph.Kind `json:"src_kind"`
	Text         string     `json:"text"`
	Relationship string     `json:"relationship"`
	DstKind      graph.Kind `json:"dst_kind"`
	K            int        `json:"k,omitempty"`
	MinScore     float64    `json:"min_score,omitempty"`
	MinScoreSet  bool       `json:"-"`
}

// RawQueryCall is the escape hatch: an arbitrary Cypher query, capped at 20
// rows.
type RawQueryCall struct {
	Query string `json:"query"`
}

func (CreateNodeCall) isToolCall()       {}
func (CreateEdgeCall) isToolCall()       {}
func (AlterCall) isToolCall()            {}
func (StructuralSearchCall) isToolCall() {}
func (VectorSearchCall) isToolCall()     {}
func (HybridSearchCall) isToolCall()     {}
func (RawQueryCall) isToolCall()         {}

// NodeResult is the result of CreateNodeCall.
type NodeResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Embedded reports whether embedding generation succeeded. Nodes without
	// an embedding are invisible to vector queries.
	Embedded bool `json:"embedded"`
}

// EdgeResult is the result of CreateEdgeCall.
type EdgeResult struct {
	LastEdgeID string `json:"last_edge_id"`
}

// defaultParentKind maps a node kind to its conventional BELONGS_TO parent.
func defaultParentKind(kind graph.Kind) graph.Kind {
	switch kind {
	case graph.KindKnowledge:
		return graph.KindTopic
	case graph.KindTopic:
		return graph.KindTag
	case graph.KindTag:
		return graph.KindTagCategory
	default:
		return ""
	}
}
