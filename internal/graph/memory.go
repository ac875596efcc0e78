package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ermiller24/executive-layer/internal/types"
)

// labelPattern pulls the first node label out of a Cypher fragment, which is
// all the structural matching the in-memory store supports.
var labelPattern = regexp.MustCompile(`\(\s*\w*\s*:\s*(\w+)`)

// memNode is the in-memory node record.
type memNode struct {
	id        string
	kind      Kind
	props     NodeProps
	embedding []float64
}

// memEdge is the in-memory edge record.
type memEdge struct {
	id          string
	srcID       string
	dstID       string
	relType     string
	description string
}

// MemoryStore is an in-memory Store with the same error-code semantics and
// ranking behavior as the Cypher-backed store. It exists for tests and for
// running without a graph database.
type MemoryStore struct {
	mu    sync.RWMutex
	dim   int
	seq   int
	nodes map[string]*memNode
	edges map[string]*memEdge

	// names indexes (kind, name) -> node id for uniqueness and lookup.
	names map[Kind]map[string]string

	closed bool
}

// NewMemoryStore creates an empty in-memory store with the given embedding
// dimension.
func NewMemoryStore(dim int) *MemoryStore {
	names := make(map[Kind]map[string]string, len(Kinds))
	for _, k := range Kinds {
		names[k] = make(map[string]string)
	}
	return &MemoryStore{
		dim:   dim,
		nodes: make(map[string]*memNode),
		edges: make(map[string]*memEdge),
		names: names,
	}
}

// nextID assigns sequential, zero-padded ids so lexicographic tie-breaks
// match insertion order.
func (s *MemoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s:%08d", prefix, s.seq)
}

// SchemaInit is a no-op: uniqueness is enforced on every write.
func (s *MemoryStore) SchemaInit(ctx context.Context) error {
	return nil
}

// CreateNode inserts a node, enforcing per-kind name uniqueness.
func (s *MemoryStore) CreateNode(ctx context.Context, kind Kind, props NodeProps) (string, error) {
	if err := props.Validate(kind); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[kind][props.Name]; exists {
		return "", types.NewError(types.DUPLICATE_NAME,
			fmt.Sprintf("%s node %q already exists", kind, props.Name))
	}

	id := s.nextID("node")
	s.nodes[id] = &memNode{id: id, kind: kind, props: props}
	s.names[kind][props.Name] = id
	return id, nil
}

// SetEmbedding writes the embedding of a node.
func (s *MemoryStore) SetEmbedding(ctx context.Context, kind Kind, id string, vec []float64) error {
	if len(vec) != s.dim {
		return types.NewError(types.DIMENSION_MISMATCH,
			fmt.Sprintf("embedding has %d entries, store dimension is %d", len(vec), s.dim))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok || node.kind != kind {
		return types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %s not found", kind, id))
	}
	node.embedding = append([]float64(nil), vec...)
	return nil
}

// CreateEdge creates the cross-product of edges between named nodes.
func (s *MemoryStore) CreateEdge(ctx context.Context, srcKind Kind, srcNames []string, dstKind Kind, dstNames []string, relType, description string) (string, error) {
	if len(srcNames) == 0 || len(dstNames) == 0 {
		return "", types.NewError(types.INVALID_ARGUMENTS, "source and target names cannot be empty")
	}
	if !identPattern.MatchString(relType) {
		return "", types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("invalid relationship type: %q", relType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastID string
	for _, src := range srcNames {
		srcID, ok := s.names[srcKind][src]
		if !ok {
			return "", types.NewError(types.NOT_FOUND,
				fmt.Sprintf("%s node %q not found", srcKind, src))
		}
		for _, dst := range dstNames {
			dstID, ok := s.names[dstKind][dst]
			if !ok {
				return "", types.NewError(types.NOT_FOUND,
					fmt.Sprintf("%s node %q not found", dstKind, dst))
			}
			id := s.nextID("edge")
			s.edges[id] = &memEdge{
				id:          id,
				srcID:       srcID,
				dstID:       dstID,
				relType:     relType,
				description: description,
			}
			lastID = id
		}
	}
	return lastID, nil
}

// Alter mutates or deletes a node; deletion detaches all incident edges.
func (s *MemoryStore) Alter(ctx context.Context, kind Kind, id string, del bool, fields map[string]any) error {
	if del && len(fields) > 0 {
		return types.NewError(types.INVALID_ARGUMENTS,
			"delete and field updates are mutually exclusive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok || node.kind != kind {
		return types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %s not found", kind, id))
	}

	if del {
		for eid, e := range s.edges {
			if e.srcID == id || e.dstID == id {
				delete(s.edges, eid)
			}
		}
		delete(s.names[node.kind], node.props.Name)
		delete(s.nodes, id)
		return nil
	}

	if len(fields) == 0 {
		return types.NewError(types.INVALID_ARGUMENTS, "no fields to update")
	}

	for k, v := range fields {
		if !identPattern.MatchString(k) {
			return types.NewError(types.INVALID_ARGUMENTS,
				fmt.Sprintf("invalid field name: %q", k))
		}
		switch k {
		case "name":
			name, ok := v.(string)
			if !ok || name == "" {
				return types.NewError(types.INVALID_ARGUMENTS, "name must be a non-empty string")
			}
			if existing, taken := s.names[node.kind][name]; taken && existing != id {
				return types.NewError(types.DUPLICATE_NAME,
					fmt.Sprintf("%s node %q already exists", node.kind, name))
			}
			delete(s.names[node.kind], node.props.Name)
			s.names[node.kind][name] = id
			node.props.Name = name
		case "description":
			node.props.Description, _ = v.(string)
		case "summary":
			node.props.Summary, _ = v.(string)
		default:
			if node.props.Extra == nil {
				node.props.Extra = make(map[string]any)
			}
			node.props.Extra[k] = v
		}
	}
	return nil
}

// FindNode returns a node by exact (kind, name).
func (s *MemoryStore) FindNode(ctx context.Context, kind Kind, name string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[kind][name]
	if !ok {
		return nil, types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %q not found", kind, name))
	}
	return s.nodes[id].toNode(), nil
}

// GetNode returns a node by id.
func (s *MemoryStore) GetNode(ctx context.Context, kind Kind, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok || node.kind != kind {
		return nil, types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %s not found", kind, id))
	}
	return node.toNode(), nil
}

// StructuralQuery supports label-based matching only: it extracts the first
// node label from the match clause and returns those nodes' projections.
func (s *MemoryStore) StructuralQuery(ctx context.Context, matchClause, whereClause, returnClause string, params map[string]any) ([]map[string]any, error) {
	if strings.TrimSpace(matchClause) == "" {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "match clause cannot be empty")
	}

	m := labelPattern.FindStringSubmatch(matchClause)
	if m == nil {
		return nil, types.NewError(types.INVALID_ARGUMENTS,
			"in-memory store requires a node label in the match clause")
	}
	kind, err := ParseKind(m[1])
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.kindRows(kind)
	return capRows(rows), nil
}

// VectorQuery scans embedded nodes of the kind and ranks by cosine similarity.
func (s *MemoryStore) VectorQuery(ctx context.Context, kind Kind, queryVec []float64, k int, minScore float64) ([]VectorHit, error) {
	if k <= 0 {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []VectorHit
	for _, node := range s.nodes {
		if node.kind != kind || len(node.embedding) == 0 {
			continue
		}
		score := CosineSimilarity(queryVec, node.embedding)
		if score < minScore {
			continue
		}
		hits = append(hits, VectorHit{
			ID:          node.id,
			Name:        node.props.Name,
			Description: node.props.Description,
			Score:       score,
		})
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// HybridQuery ranks sources by similarity and joins through relType edges.
func (s *MemoryStore) HybridQuery(ctx context.Context, srcKind Kind, queryVec []float64, relType string, dstKind Kind, k int, minScore float64) ([]HybridHit, error) {
	if !identPattern.MatchString(relType) {
		return nil, types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("invalid relationship type: %q", relType))
	}

	sources, err := s.VectorQuery(ctx, srcKind, queryVec, k, minScore)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []HybridHit
	for _, src := range sources {
		for _, e := range s.edges {
			if e.relType != relType {
				continue
			}
			// Undirected match: the edge may run either way between the
			// source and the target kind.
			var targetID string
			switch src.ID {
			case e.srcID:
				targetID = e.dstID
			case e.dstID:
				targetID = e.srcID
			default:
				continue
			}
			target, ok := s.nodes[targetID]
			if !ok || target.kind != dstKind {
				continue
			}
			hits = append(hits, HybridHit{
				SourceID:          src.ID,
				SourceName:        src.Name,
				Relationship:      relType,
				TargetID:          target.id,
				TargetName:        target.props.Name,
				TargetDescription: target.props.Description,
				Score:             src.Score,
			})
		}
	}
	return hits, nil
}

// RawQuery supports label extraction only, like StructuralQuery.
func (s *MemoryStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "query cannot be empty")
	}

	m := labelPattern.FindStringSubmatch(query)
	if m == nil {
		return nil, types.NewError(types.INVALID_ARGUMENTS,
			"in-memory store requires a node label in the query")
	}
	kind, err := ParseKind(m[1])
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return capRows(s.kindRows(kind)), nil
}

// Health reports healthy until the store is closed.
func (s *MemoryStore) Health(ctx context.Context) types.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Unhealthy("store closed")
	}
	return types.Healthy(fmt.Sprintf("%d nodes, %d edges", len(s.nodes), len(s.edges)))
}

// Close marks the store closed. Data is retained for post-mortem inspection
// in tests.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// kindRows projects every node of the kind into a row map, ordered by id.
func (s *MemoryStore) kindRows(kind Kind) []map[string]any {
	var nodes []*memNode
	for _, n := range s.nodes {
		if n.kind == kind {
			nodes = append(nodes, n)
		}
	}
	// Deterministic order: ids are zero-padded sequence numbers.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j-1].id > nodes[j].id; j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}

	rows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		row := map[string]any{
			"id":          n.id,
			"name":        n.props.Name,
			"description": n.props.Description,
		}
		if n.props.Summary != "" {
			row["summary"] = n.props.Summary
		}
		rows = append(rows, row)
	}
	return rows
}

func (n *memNode) toNode() *Node {
	return &Node{
		ID:          n.id,
		Kind:        n.kind,
		Name:        n.props.Name,
		Description: n.props.Description,
		Summary:     n.props.Summary,
		Embedding:   append([]float64(nil), n.embedding...),
		Extra:       n.props.Extra,
	}
}
