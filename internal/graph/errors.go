package graph

import "github.com/ermiller24/executive-layer/internal/types"

// Graph error codes
const (
	ErrCodeConnectionFailed types.ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeConnectionClosed types.ErrorCode = "GRAPH_CONNECTION_CLOSED"
	ErrCodeQueryFailed      types.ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeInvalidConfig    types.ErrorCode = "GRAPH_INVALID_CONFIG"
	ErrCodeSchemaInitFailed types.ErrorCode = "GRAPH_SCHEMA_INIT_FAILED"
)
