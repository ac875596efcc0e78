// Package config provides configuration loading and validation for the EIR
// gateway. Configuration comes from an optional YAML file with ${ENV}
// interpolation, overlaid with well-known environment variables.
package config

import (
	"time"
)

// Config is the root configuration for the EIR gateway.
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Speaker      WorkerLLMConfig    `yaml:"speaker" mapstructure:"speaker"`
	Executive    WorkerLLMConfig    `yaml:"executive" mapstructure:"executive"`
	Embedding    EmbeddingConfig    `yaml:"embedding" mapstructure:"embedding"`
	Graph        GraphConfig        `yaml:"graph" mapstructure:"graph"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Port is the TCP port the OpenAI-compatible API listens on.
	Port int `yaml:"port" mapstructure:"port"`

	// Debug enables the /debug/query sub-surface and verbose chunk logging.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	// DefaultAPIKey is the upstream LLM key used when a request carries no
	// per-request override header.
	DefaultAPIKey string `yaml:"default_api_key" mapstructure:"default_api_key"`
}

// WorkerLLMConfig configures one of the two LLM workers.
type WorkerLLMConfig struct {
	// Provider selects the LLM adapter: "openai", "anthropic", "ollama",
	// "googleai" or "mock".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model is the identifier string passed to the adapter.
	Model string `yaml:"model" mapstructure:"model"`

	// APIKey overrides the server default key for this worker.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// BaseURL overrides the adapter's API endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmbeddingConfig configures the embedding provider (C1).
type EmbeddingConfig struct {
	// Provider selects the embedder: "native" (local ONNX MiniLM) or "mock".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model is the embedding model identifier.
	Model string `yaml:"model" mapstructure:"model"`

	// Dimension is D, the vector length stored in the graph. Provider output
	// is truncated or zero-padded to this length.
	Dimension int `yaml:"dimension" mapstructure:"dimension"`
}

// GraphConfig configures the Neo4j knowledge graph connection.
type GraphConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// OrchestratorConfig tunes the dual-worker orchestrator.
type OrchestratorConfig struct {
	// ReevalStride is the number of accumulated speaker characters between
	// successive executive evaluations.
	ReevalStride int `yaml:"reeval_stride" mapstructure:"reeval_stride"`

	// RequestTimeout bounds a single chat request wall-clock.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`

	// CancelGrace is how long workers have to stop producing side effects
	// after a client disconnect.
	CancelGrace time.Duration `yaml:"cancel_grace" mapstructure:"cancel_grace"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns a Config with defaults suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
		},
		Speaker: WorkerLLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
		},
		Executive: WorkerLLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
		},
		Embedding: EmbeddingConfig{
			Provider:  "native",
			Model:     "all-MiniLM-L6-v2",
			Dimension: 384,
		},
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "password",
		},
		Orchestrator: OrchestratorConfig{
			ReevalStride:   100,
			RequestTimeout: 120 * time.Second,
			CancelGrace:    500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
