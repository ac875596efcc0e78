package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ermiller24/executive-layer/internal/graph"
	"github.com/ermiller24/executive-layer/internal/knowledge"
	"github.com/ermiller24/executive-layer/internal/llm"
)

// debugRequest is the /debug/query body. When ToolParams is present one
// knowledge tool is inferred from its shape; otherwise the query goes to the
// Executive model.
type debugRequest struct {
	Query      string         `json:"query"`
	ToolParams map[string]any `json:"tool_params,omitempty"`
}

type debugResponse struct {
	Tool     string `json:"tool,omitempty"`
	Result   any    `json:"result,omitempty"`
	Response string `json:"response,omitempty"`
}

func (s *Server) handleDebugQuery(w http.ResponseWriter, r *http.Request) {
	var req debugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorDetail{
			Message: "invalid request body: " + err.Error(),
			Type:    "invalid_request_error",
		})
		return
	}

	if req.ToolParams != nil {
		name, call, err := inferToolCall(req.Query, req.ToolParams)
		if err != nil {
			writeError(w, http.StatusBadRequest, errorDetail{
				Message: err.Error(),
				Type:    "invalid_request_error",
				Param:   "tool_params",
			})
			return
		}

		result, err := s.tools.Dispatch(r.Context(), call)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errorDetail{
				Message: err.Error(),
				Type:    "server_error",
			})
			return
		}

		writeJSON(w, http.StatusOK, debugResponse{Tool: name, Result: result})
		return
	}

	// No tool parameters: delegate to the Executive model.
	execProvider, err := s.provider(s.workerConfig(r, "executive", s.cfg.Executive))
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorDetail{
			Message: err.Error(),
			Type:    "server_error",
		})
		return
	}

	resp, err := execProvider.Complete(r.Context(), llm.CompletionRequest{
		Model:    s.cfg.Executive.Model,
		Messages: []llm.Message{llm.NewUserMessage(req.Query)},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorDetail{
			Message: err.Error(),
			Type:    "server_error",
		})
		return
	}

	writeJSON(w, http.StatusOK, debugResponse{Response: resp.Message.Content})
}

// Tool inference priority: an explicit knowledge_* mention in the query text
// wins; then the parameter shape decides, most specific first.
func inferToolCall(query string, params map[string]any) (string, knowledge.ToolCall, error) {
	byName := []struct {
		name  string
		build func(map[string]any) (knowledge.ToolCall, error)
	}{
		{"knowledge_create_node", buildCreateNode},
		{"knowledge_create_edge", buildCreateEdge},
		{"knowledge_alter", buildAlter},
		{"knowledge_structural_search", buildStructuralSearch},
		{"knowledge_vector_search", buildVectorSearch},
		{"knowledge_hybrid_search", buildHybridSearch},
		{"knowledge_raw_query", buildRawQuery},
	}

	for _, entry := range byName {
		if strings.Contains(query, entry.name) {
			call, err := entry.build(params)
			return entry.name, call, err
		}
	}

	switch {
	case has(params, "query"):
		call, err := buildRawQuery(params)
		return "knowledge_raw_query", call, err
	case has(params, "nodeType") && has(params, "text") && has(params, "relationshipType") && has(params, "targetType"):
		call, err := buildHybridSearch(params)
		return "knowledge_hybrid_search", call, err
	case has(params, "nodeType") && has(params, "text"):
		call, err := buildVectorSearch(params)
		return "knowledge_vector_search", call, err
	case has(params, "nodeType"):
		call, err := buildCreateNode(params)
		return "knowledge_create_node", call, err
	default:
		call, err := buildRawQuery(params)
		return "knowledge_raw_query", call, err
	}
}

func has(params map[string]any, key string) bool {
	v, ok := params[key]
	return ok && v != nil
}

func str(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func strs(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func num(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func parseKindParam(params map[string]any, key string) (graph.Kind, error) {
	return graph.ParseKind(str(params, key))
}

func buildCreateNode(params map[string]any) (knowledge.ToolCall, error) {
	kind, err := parseKindParam(params, "nodeType")
	if err != nil {
		return nil, err
	}
	return knowledge.CreateNodeCall{
		Kind:        kind,
		Name:        str(params, "name"),
		Description: str(params, "description"),
		Summary:     str(params, "summary"),
		BelongsTo:   strs(params, "belongsTo"),
	}, nil
}

func buildCreateEdge(params map[string]any) (knowledge.ToolCall, error) {
	srcKind, err := parseKindParam(params, "nodeType")
	if err != nil {
		return nil, err
	}
	dstKind, err := parseKindParam(params, "targetType")
	if err != nil {
		return nil, err
	}
	return knowledge.CreateEdgeCall{
		SrcKind:      srcKind,
		SrcNames:     strs(params, "name"),
		DstKind:      dstKind,
		DstNames:     strs(params, "target"),
		Relationship: str(params, "relationshipType"),
		Description:  str(params, "description"),
	}, nil
}

func buildAlter(params map[string]any) (knowledge.ToolCall, error) {
	kind, err := parseKindParam(params, "nodeType")
	if err != nil {
		return nil, err
	}
	del, _ := params["delete"].(bool)
	fields, _ := params["fields"].(map[string]any)
	return knowledge.AlterCall{
		Kind:   kind,
		ID:     str(params, "id"),
		Delete: del,
		Fields: fields,
	}, nil
}

func buildStructuralSearch(params map[string]any) (knowledge.ToolCall, error) {
	p, _ := params["params"].(map[string]any)
	return knowledge.StructuralSearchCall{
		Match:  str(params, "match"),
		Where:  str(params, "where"),
		Return: str(params, "return"),
		Params: p,
	}, nil
}

func buildVectorSearch(params map[string]any) (knowledge.ToolCall, error) {
	kind, err := parseKindParam(params, "nodeType")
	if err != nil {
		return nil, err
	}
	_, minSet := params["minScore"]
	return knowledge.VectorSearchCall{
		Kind:        kind,
		Text:        str(params, "text"),
		K:           int(num(params, "k")),
		MinScore:    num(params, "minScore"),
		MinScoreSet: minSet,
	}, nil
}

func buildHybridSearch(params map[string]any) (knowledge.ToolCall, error) {
	srcKind, err := parseKindParam(params, "nodeType")
	if err != nil {
		return nil, err
	}
	dstKind, err := parseKindParam(params, "targetType")
	if err != nil {
		return nil, err
	}
	_, minSet := params["minScore"]
	return knowledge.HybridSearchCall{
		SrcKind:      srcKind,
		Text:         str(params, "text"),
		Relationship: str(params, "relationshipType"),
		DstKind:      dstKind,
		K:            int(num(params, "k")),
		MinScore:     num(params, "minScore"),
		MinScoreSet:  minSet,
	}, nil
}

func buildRawQuery(params map[string]any) (knowledge.ToolCall, error) {
	return knowledge.RawQueryCall{Query: str(params, "query")}, nil
}
