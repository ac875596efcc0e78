// Package graph implements the knowledge graph store: a typed, labeled graph
// with per-kind unique names and cosine vector indexes over node embeddings.
// The Neo4j-backed store is the production path; an in-memory store with the
// same semantics backs the test suites.
package graph

import (
	"context"
	"time"

	"github.com/ermiller24/executive-layer/internal/types"
)

// Client provides low-level access to a Cypher-style graph database.
// Implementations must be thread-safe for concurrent access.
type Client interface {
	// Connect establishes a connection to the graph database.
	Connect(ctx context.Context) error

	// Close releases all resources and closes the database connection.
	Close(ctx context.Context) error

	// Health returns the current health status of the connection.
	Health(ctx context.Context) types.HealthStatus

	// Read executes a Cypher query in a read transaction.
	Read(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Write executes a Cypher query in a write transaction.
	Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult represents the result of a Cypher query execution.
type QueryResult struct {
	// Records contains the result rows as maps of column name to value.
	Records []map[string]any

	// Columns contains the names of the columns in the result set.
	Columns []string

	// Summary contains metadata about the query execution.
	Summary QuerySummary
}

// QuerySummary provides metadata about query execution.
type QuerySummary struct {
	ExecutionTime        time.Duration
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// ClientConfig contains configuration options for graph database clients.
type ClientConfig struct {
	// URI is the connection URI. For Neo4j use "bolt://host:port",
	// "bolt+s://host:port" for TLS, or "neo4j://" for routing.
	URI string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// Database name to connect to. Empty string uses the default database.
	Database string

	// MaxConnectionPoolSize limits the number of connections in the pool.
	// Zero or negative values use the driver default.
	MaxConnectionPoolSize int

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration

	// MaxTransactionRetryTime is the maximum time to retry failed transactions.
	MaxTransactionRetryTime time.Duration
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		Database:                "",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c ClientConfig) Validate() error {
	if c.URI == "" {
		return types.NewError(ErrCodeInvalidConfig, "URI cannot be empty")
	}
	if c.Username == "" {
		return types.NewError(ErrCodeInvalidConfig, "Username cannot be empty")
	}
	if c.Password == "" {
		return types.NewError(ErrCodeInvalidConfig, "Password cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewError(ErrCodeInvalidConfig, "ConnectionTimeout must be positive")
	}
	if c.MaxTransactionRetryTime <= 0 {
		return types.NewError(ErrCodeInvalidConfig, "MaxTransactionRetryTime must be positive")
	}
	return nil
}
