package graph

import (
	"fmt"

	"github.com/ermiller24/executive-layer/internal/types"
)

// Kind is the closed set of node labels in the knowledge graph.
type Kind string

const (
	KindTagCategory Kind = "TagCategory"
	KindTag         Kind = "Tag"
	KindTopic       Kind = "Topic"
	KindKnowledge   Kind = "Knowledge"
)

// Kinds lists every node kind, in the order schema objects are created.
var Kinds = []Kind{KindTagCategory, KindTag, KindTopic, KindKnowledge}

// String returns the label string for the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the closed enum values.
func (k Kind) IsValid() bool {
	switch k {
	case KindTagCategory, KindTag, KindTopic, KindKnowledge:
		return true
	default:
		return false
	}
}

// ParseKind converts a label string into a Kind, or fails with
// INVALID_ARGUMENTS.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("unknown node kind: %q", s))
	}
	return k, nil
}

// NodeProps carries the caller-supplied properties for node creation.
type NodeProps struct {
	Name        string
	Description string

	// Summary is mandatory for Knowledge nodes.
	Summary string

	// Extra holds free-form scalar properties.
	Extra map[string]any
}

// Validate enforces the creation invariants: a non-empty name and, for
// Knowledge nodes, a non-empty summary.
func (p NodeProps) Validate(kind Kind) error {
	if !kind.IsValid() {
		return types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("unknown node kind: %q", kind))
	}
	if p.Name == "" {
		return types.NewError(types.INVALID_ARGUMENTS, "node name cannot be empty")
	}
	if kind == KindKnowledge && p.Summary == "" {
		return types.NewError(types.INVALID_ARGUMENTS,
			"Knowledge nodes require a summary")
	}
	return nil
}

// Node is a stored graph node.
type Node struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Summary     string         `json:"summary,omitempty"`
	Embedding   []float64      `json:"-"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// VectorHit is one row of a vector similarity query, ordered by descending
// score with ties broken by lower id.
type VectorHit struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// HybridHit is one row of a hybrid semantic+structural query: a source node
// ranked by vector similarity joined through a relationship to a target.
type HybridHit struct {
	SourceID          string  `json:"source_id"`
	SourceName        string  `json:"source_name"`
	Relationship      string  `json:"relationship"`
	TargetID          string  `json:"target_id"`
	TargetName        string  `json:"target_name"`
	TargetDescription string  `json:"target_description"`
	Score             float64 `json:"score"`
}
