package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, NewValidator().Validate(DefaultConfig()))
}

func TestLoadYAMLWithInterpolation(t *testing.T) {
	t.Setenv("TEST_NEO4J_PASSWORD", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, "eir.yaml")
	yaml := `
server:
  port: 8080
speaker:
  provider: ollama
  model: llama3
executive:
  provider: openai
  model: gpt-4o
graph:
  uri: bolt://graph:7687
  username: neo4j
  password: ${TEST_NEO4J_PASSWORD}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.Speaker.Provider)
	assert.Equal(t, "llama3", cfg.Speaker.Model)
	assert.Equal(t, "s3cret", cfg.Graph.Password)
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Orchestrator.ReevalStride)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := NewLoader(NewValidator()).LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPEAKER_MODEL", "gpt-4o-mini")
	t.Setenv("EXECUTIVE_MODEL_PROVIDER", "anthropic")
	t.Setenv("EMBEDDING_DIMENSION", "512")
	t.Setenv("NEO4J_URL", "bolt://override:7687")
	t.Setenv("DEBUG", "true")
	t.Setenv("REEVAL_STRIDE", "20")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "30")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "gpt-4o-mini", cfg.Speaker.Model)
	assert.Equal(t, "anthropic", cfg.Executive.Provider)
	assert.Equal(t, 512, cfg.Embedding.Dimension)
	assert.Equal(t, "bolt://override:7687", cfg.Graph.URI)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, 20, cfg.Orchestrator.ReevalStride)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.RequestTimeout)
}

func TestValidatorRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Dimension = 0
	cfg.Embedding.Provider = "remote"
	cfg.Orchestrator.ReevalStride = -1

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.dimension")
	assert.Contains(t, err.Error(), "embedding.provider")
	assert.Contains(t, err.Error(), "reeval_stride")
}
