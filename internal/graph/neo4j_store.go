package graph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ermiller24/executive-layer/internal/types"
)

// identPattern restricts labels and relationship types interpolated into
// Cypher text. Everything else travels as parameters.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CypherStore implements Store against a Cypher-speaking Client (Neo4j).
//
// Vector queries degrade through a fallback chain: native vector index,
// then scan-and-score over embedded nodes, then an unscored scan with a
// placeholder score. Each degradation is logged.
type CypherStore struct {
	client Client
	dim    int
	logger *slog.Logger
}

// NewCypherStore creates a Store over the given client. dim is the configured
// embedding dimension D enforced on SetEmbedding.
func NewCypherStore(client Client, dim int, logger *slog.Logger) *CypherStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CypherStore{
		client: client,
		dim:    dim,
		logger: logger,
	}
}

func vectorIndexName(kind Kind) string {
	return strings.ToLower(string(kind)) + "_embedding_index"
}

// SchemaInit creates uniqueness constraints, scalar name indexes, and cosine
// vector indexes for every kind. All statements use IF NOT EXISTS, so the
// call is idempotent.
func (s *CypherStore) SchemaInit(ctx context.Context) error {
	for _, kind := range Kinds {
		lower := strings.ToLower(string(kind))

		statements := []string{
			fmt.Sprintf(
				"CREATE CONSTRAINT %s_name_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.name IS UNIQUE",
				lower, kind),
			fmt.Sprintf(
				"CREATE INDEX %s_name_index IF NOT EXISTS FOR (n:%s) ON (n.name)",
				lower, kind),
		}

		for _, stmt := range statements {
			if _, err := s.client.Write(ctx, stmt, nil); err != nil {
				return types.WrapError(ErrCodeSchemaInitFailed,
					fmt.Sprintf("schema statement failed for %s", kind), err)
			}
		}

		vectorStmt := fmt.Sprintf(
			"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.embedding) "+
				"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
			vectorIndexName(kind), kind, s.dim)
		if _, err := s.client.Write(ctx, vectorStmt, nil); err != nil {
			// Older servers without vector index support still work through
			// the scan fallback.
			s.logger.Warn("vector index creation failed, relying on scan fallback",
				"kind", kind, "error", err)
		}
	}

	return nil
}

// CreateNode inserts a node and returns its backend-assigned id.
func (s *CypherStore) CreateNode(ctx context.Context, kind Kind, props NodeProps) (string, error) {
	if err := props.Validate(kind); err != nil {
		return "", err
	}

	nodeProps := map[string]any{
		"name":        props.Name,
		"description": props.Description,
	}
	if props.Summary != "" {
		nodeProps["summary"] = props.Summary
	}
	for k, v := range props.Extra {
		if _, reserved := nodeProps[k]; reserved || k == "embedding" {
			continue
		}
		nodeProps[k] = v
	}

	cypher := fmt.Sprintf("CREATE (n:%s) SET n = $props RETURN elementId(n) AS id", kind)
	result, err := s.client.Write(ctx, cypher, map[string]any{"props": nodeProps})
	if err != nil {
		if isConstraintViolation(err) {
			return "", types.WrapError(types.DUPLICATE_NAME,
				fmt.Sprintf("%s node %q already exists", kind, props.Name), err)
		}
		return "", types.WrapError(types.BACKEND_ERROR, "failed to create node", err)
	}
	if len(result.Records) == 0 {
		return "", types.NewError(types.BACKEND_ERROR, "node creation returned no id")
	}

	return recordString(result.Records[0], "id"), nil
}

// SetEmbedding writes the embedding property of a node.
func (s *CypherStore) SetEmbedding(ctx context.Context, kind Kind, id string, vec []float64) error {
	if len(vec) != s.dim {
		return types.NewError(types.DIMENSION_MISMATCH,
			fmt.Sprintf("embedding has %d entries, store dimension is %d", len(vec), s.dim))
	}

	cypher := fmt.Sprintf(
		"MATCH (n:%s) WHERE elementId(n) = $id SET n.embedding = $vec RETURN elementId(n) AS id", kind)
	result, err := s.client.Write(ctx, cypher, map[string]any{"id": id, "vec": vec})
	if err != nil {
		return types.WrapError(types.BACKEND_ERROR, "failed to set embedding", err)
	}
	if len(result.Records) == 0 {
		return types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %s not found", kind, id))
	}
	return nil
}

// CreateEdge creates the cross-product of edges between the named source and
// target nodes, returning the id of the last created edge.
func (s *CypherStore) CreateEdge(ctx context.Context, srcKind Kind, srcNames []string, dstKind Kind, dstNames []string, relType, description string) (string, error) {
	if len(srcNames) == 0 || len(dstNames) == 0 {
		return "", types.NewError(types.INVALID_ARGUMENTS, "source and target names cannot be empty")
	}
	if !identPattern.MatchString(relType) {
		return "", types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("invalid relationship type: %q", relType))
	}

	cypher := fmt.Sprintf(
		"MATCH (a:%s {name: $src}), (b:%s {name: $dst}) "+
			"CREATE (a)-[r:%s {description: $desc}]->(b) RETURN elementId(r) AS id",
		srcKind, dstKind, relType)

	var lastID string
	for _, src := range srcNames {
		for _, dst := range dstNames {
			result, err := s.client.Write(ctx, cypher, map[string]any{
				"src":  src,
				"dst":  dst,
				"desc": description,
			})
			if err != nil {
				return "", types.WrapError(types.BACKEND_ERROR, "failed to create edge", err)
			}
			if len(result.Records) == 0 {
				return "", types.NewError(types.NOT_FOUND,
					fmt.Sprintf("edge endpoints not found: (%s %q) -> (%s %q)", srcKind, src, dstKind, dst))
			}
			lastID = recordString(result.Records[0], "id")
		}
	}

	return lastID, nil
}

// Alter mutates or deletes a node. Deletion detaches all incident edges.
func (s *CypherStore) Alter(ctx context.Context, kind Kind, id string, del bool, fields map[string]any) error {
	if del && len(fields) > 0 {
		return types.NewError(types.INVALID_ARGUMENTS,
			"delete and field updates are mutually exclusive")
	}

	if del {
		cypher := fmt.Sprintf("MATCH (n:%s) WHERE elementId(n) = $id DETACH DELETE n", kind)
		result, err := s.client.Write(ctx, cypher, map[string]any{"id": id})
		if err != nil {
			return types.WrapError(types.BACKEND_ERROR, "failed to delete node", err)
		}
		if result.Summary.NodesDeleted == 0 {
			return types.NewError(types.NOT_FOUND,
				fmt.Sprintf("%s node %s not found", kind, id))
		}
		return nil
	}

	if len(fields) == 0 {
		return types.NewError(types.INVALID_ARGUMENTS, "no fields to update")
	}

	setClauses := make([]string, 0, len(fields))
	params := map[string]any{"id": id}
	i := 0
	for k, v := range fields {
		if !identPattern.MatchString(k) {
			return types.NewError(types.INVALID_ARGUMENTS,
				fmt.Sprintf("invalid field name: %q", k))
		}
		param := fmt.Sprintf("f%d", i)
		setClauses = append(setClauses, fmt.Sprintf("n.%s = $%s", k, param))
		params[param] = v
		i++
	}

	cypher := fmt.Sprintf(
		"MATCH (n:%s) WHERE elementId(n) = $id SET %s RETURN elementId(n) AS id",
		kind, strings.Join(setClauses, ", "))
	result, err := s.client.Write(ctx, cypher, params)
	if err != nil {
		if isConstraintViolation(err) {
			return types.WrapError(types.DUPLICATE_NAME, "rename collides with existing node", err)
		}
		return types.WrapError(types.BACKEND_ERROR, "failed to update node", err)
	}
	if len(result.Records) == 0 {
		return types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %s not found", kind, id))
	}
	return nil
}

// FindNode returns a node by exact (kind, name).
func (s *CypherStore) FindNode(ctx context.Context, kind Kind, name string) (*Node, error) {
	cypher := fmt.Sprintf(
		"MATCH (n:%s {name: $name}) RETURN elementId(n) AS id, n.name AS name, "+
			"n.description AS description, n.summary AS summary, n.embedding AS embedding", kind)
	result, err := s.client.Read(ctx, cypher, map[string]any{"name": name})
	if err != nil {
		return nil, types.WrapError(types.BACKEND_ERROR, "node lookup failed", err)
	}
	if len(result.Records) == 0 {
		return nil, types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %q not found", kind, name))
	}
	return recordToNode(result.Records[0], kind), nil
}

// GetNode returns a node by id.
func (s *CypherStore) GetNode(ctx context.Context, kind Kind, id string) (*Node, error) {
	cypher := fmt.Sprintf(
		"MATCH (n:%s) WHERE elementId(n) = $id RETURN elementId(n) AS id, n.name AS name, "+
			"n.description AS description, n.summary AS summary, n.embedding AS embedding", kind)
	result, err := s.client.Read(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, types.WrapError(types.BACKEND_ERROR, "node lookup failed", err)
	}
	if len(result.Records) == 0 {
		return nil, types.NewError(types.NOT_FOUND,
			fmt.Sprintf("%s node %s not found", kind, id))
	}
	return recordToNode(result.Records[0], kind), nil
}

// StructuralQuery executes MATCH/WHERE/RETURN fragments, capped at
// MaxQueryRows rows.
func (s *CypherStore) StructuralQuery(ctx context.Context, matchClause, whereClause, returnClause string, params map[string]any) ([]map[string]any, error) {
	if strings.TrimSpace(matchClause) == "" {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "match clause cannot be empty")
	}

	var sb strings.Builder
	sb.WriteString("MATCH ")
	sb.WriteString(matchClause)
	if strings.TrimSpace(whereClause) != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereClause)
	}
	if strings.TrimSpace(returnClause) == "" {
		returnClause = "*"
	}
	sb.WriteString(" RETURN ")
	sb.WriteString(returnClause)
	if !strings.Contains(strings.ToUpper(returnClause), "LIMIT") {
		fmt.Fprintf(&sb, " LIMIT %d", MaxQueryRows)
	}

	result, err := s.client.Read(ctx, sb.String(), params)
	if err != nil {
		return nil, types.WrapError(types.BACKEND_ERROR, "structural query failed", err)
	}
	return capRows(result.Records), nil
}

// VectorQuery returns the top-k most similar nodes of the kind, descending by
// score. Falls back from the native vector index to scan-and-score, then to
// an unscored scan.
func (s *CypherStore) VectorQuery(ctx context.Context, kind Kind, queryVec []float64, k int, minScore float64) ([]VectorHit, error) {
	if k <= 0 {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "k must be positive")
	}

	hits, err := s.vectorQueryNative(ctx, kind, queryVec, k, minScore)
	if err == nil {
		return hits, nil
	}
	s.logger.Warn("native vector query failed, falling back to scan",
		"kind", kind, "error", err)

	hits, err = s.vectorQueryScan(ctx, kind, queryVec, k, minScore)
	if err == nil {
		return hits, nil
	}
	s.logger.Warn("scan-and-score vector query failed, falling back to unscored scan",
		"kind", kind, "error", err)

	return s.vectorQueryUnscored(ctx, kind, k)
}

func (s *CypherStore) vectorQueryNative(ctx context.Context, kind Kind, queryVec []float64, k int, minScore float64) ([]VectorHit, error) {
	cypher := "CALL db.index.vector.queryNodes($index, $k, $vec) YIELD node, score " +
		"WHERE score >= $min " +
		"RETURN elementId(node) AS id, node.name AS name, node.description AS description, score " +
		"ORDER BY score DESC, id ASC"
	result, err := s.client.Read(ctx, cypher, map[string]any{
		"index": vectorIndexName(kind),
		"k":     k,
		"vec":   queryVec,
		"min":   minScore,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]VectorHit, 0, len(result.Records))
	for _, rec := range result.Records {
		hits = append(hits, VectorHit{
			ID:          recordString(rec, "id"),
			Name:        recordString(rec, "name"),
			Description: recordString(rec, "description"),
			Score:       recordFloat(rec, "score"),
		})
	}
	sortHits(hits)
	return hits, nil
}

func (s *CypherStore) vectorQueryScan(ctx context.Context, kind Kind, queryVec []float64, k int, minScore float64) ([]VectorHit, error) {
	cypher := fmt.Sprintf(
		"MATCH (n:%s) WHERE n.embedding IS NOT NULL "+
			"RETURN elementId(n) AS id, n.name AS name, n.description AS description, n.embedding AS embedding",
		kind)
	result, err := s.client.Read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]VectorHit, 0, len(result.Records))
	for _, rec := range result.Records {
		emb := recordFloatSlice(rec, "embedding")
		if len(emb) == 0 {
			continue
		}
		score := CosineSimilarity(queryVec, emb)
		if score < minScore {
			continue
		}
		hits = append(hits, VectorHit{
			ID:          recordString(rec, "id"),
			Name:        recordString(rec, "name"),
			Description: recordString(rec, "description"),
			Score:       score,
		})
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *CypherStore) vectorQueryUnscored(ctx context.Context, kind Kind, k int) ([]VectorHit, error) {
	cypher := fmt.Sprintf(
		"MATCH (n:%s) WHERE n.embedding IS NOT NULL "+
			"RETURN elementId(n) AS id, n.name AS name, n.description AS description LIMIT $k",
		kind)
	result, err := s.client.Read(ctx, cypher, map[string]any{"k": k})
	if err != nil {
		return nil, types.WrapError(types.BACKEND_ERROR, "vector query fallbacks exhausted", err)
	}

	hits := make([]VectorHit, 0, len(result.Records))
	for _, rec := range result.Records {
		hits = append(hits, VectorHit{
			ID:          recordString(rec, "id"),
			Name:        recordString(rec, "name"),
			Description: recordString(rec, "description"),
			Score:       1.0,
		})
	}
	return hits, nil
}

// HybridQuery ranks source nodes by vector similarity and joins each through
// relType to targets of dstKind.
func (s *CypherStore) HybridQuery(ctx context.Context, srcKind Kind, queryVec []float64, relType string, dstKind Kind, k int, minScore float64) ([]HybridHit, error) {
	if !identPattern.MatchString(relType) {
		return nil, types.NewError(types.INVALID_ARGUMENTS,
			fmt.Sprintf("invalid relationship type: %q", relType))
	}

	sources, err := s.VectorQuery(ctx, srcKind, queryVec, k, minScore)
	if err != nil {
		return nil, err
	}

	// Undirected match: BELONGS_TO edges point child to parent, but hybrid
	// retrieval walks from the parent side as often as not.
	cypher := fmt.Sprintf(
		"MATCH (s:%s)-[r:%s]-(t:%s) WHERE elementId(s) = $id "+
			"RETURN elementId(t) AS tid, t.name AS tname, t.description AS tdesc",
		srcKind, relType, dstKind)

	var hits []HybridHit
	for _, src := range sources {
		result, err := s.client.Read(ctx, cypher, map[string]any{"id": src.ID})
		if err != nil {
			return nil, types.WrapError(types.BACKEND_ERROR, "hybrid join failed", err)
		}
		for _, rec := range result.Records {
			hits = append(hits, HybridHit{
				SourceID:          src.ID,
				SourceName:        src.Name,
				Relationship:      relType,
				TargetID:          recordString(rec, "tid"),
				TargetName:        recordString(rec, "tname"),
				TargetDescription: recordString(rec, "tdesc"),
				Score:             src.Score,
			})
		}
	}

	return hits, nil
}

// RawQuery executes an arbitrary Cypher query, capped at MaxQueryRows rows.
func (s *CypherStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.INVALID_ARGUMENTS, "query cannot be empty")
	}

	result, err := s.client.Write(ctx, query, nil)
	if err != nil {
		return nil, types.WrapError(types.BACKEND_ERROR, "raw query failed", err)
	}
	return capRows(result.Records), nil
}

// Health returns the health of the underlying client.
func (s *CypherStore) Health(ctx context.Context) types.HealthStatus {
	return s.client.Health(ctx)
}

// Close closes the underlying client.
func (s *CypherStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// capRows truncates rows to MaxQueryRows.
func capRows(rows []map[string]any) []map[string]any {
	if len(rows) > MaxQueryRows {
		return rows[:MaxQueryRows]
	}
	return rows
}

// recordToNode maps a lookup record to a Node.
func recordToNode(rec map[string]any, kind Kind) *Node {
	return &Node{
		ID:          recordString(rec, "id"),
		Kind:        kind,
		Name:        recordString(rec, "name"),
		Description: recordString(rec, "description"),
		Summary:     recordString(rec, "summary"),
		Embedding:   recordFloatSlice(rec, "embedding"),
	}
}

// recordString extracts a string column, tolerating nil.
func recordString(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

// recordFloat extracts a numeric column as float64.
func recordFloat(rec map[string]any, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// recordFloatSlice extracts a float vector column as produced by the driver.
func recordFloatSlice(rec map[string]any, key string) []float64 {
	switch v := rec[key].(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			switch f := e.(type) {
			case float64:
				out = append(out, f)
			case float32:
				out = append(out, float64(f))
			case int64:
				out = append(out, float64(f))
			}
		}
		return out
	default:
		return nil
	}
}
