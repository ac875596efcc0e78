//go:build integration
// +build integration

package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ermiller24/executive-layer/internal/types"
)

const integrationDim = 4

// setupNeo4jStore starts a Neo4j container and returns a store bound to it.
func setupNeo4jStore(t *testing.T, ctx context.Context) (*CypherStore, func()) {
	t.Helper()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}
	if err := provider.Health(ctx); err != nil {
		t.Skip("Docker not running, skipping integration test")
		return nil, func() {}
	}

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "none",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("7687/tcp"),
			wait.ForLog("Started."),
		).WithDeadline(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Neo4j container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	cfg := DefaultClientConfig()
	cfg.URI = fmt.Sprintf("bolt://%s:%s", host, port.Port())
	cfg.Password = "ignored" // auth disabled in the container

	client, err := NewNeo4jClient(cfg)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	require.True(t, client.Health(ctx).IsHealthy())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewCypherStore(client, integrationDim, logger)
	require.NoError(t, store.SchemaInit(ctx))

	cleanup := func() {
		_ = client.Close(ctx)
		_ = container.Terminate(ctx)
	}
	return store, cleanup
}

func TestIntegration_NodeLifecycle(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupNeo4jStore(t, ctx)
	defer cleanup()

	id, err := store.CreateNode(ctx, KindTopic, NodeProps{
		Name:        "French Geography",
		Description: "Cities and regions of France",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Same name within the kind is rejected.
	_, err = store.CreateNode(ctx, KindTopic, NodeProps{
		Name:        "French Geography",
		Description: "duplicate",
	})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DUPLICATE_NAME))

	// Same name under a different kind is fine.
	_, err = store.CreateNode(ctx, KindTag, NodeProps{
		Name:        "French Geography",
		Description: "tag variant",
	})
	require.NoError(t, err)

	node, err := store.FindNode(ctx, KindTopic, "French Geography")
	require.NoError(t, err)
	assert.Equal(t, id, node.ID)

	require.NoError(t, store.Alter(ctx, KindTopic, id, true, nil))
	_, err = store.FindNode(ctx, KindTopic, "French Geography")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.NOT_FOUND))
}

func TestIntegration_VectorQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupNeo4jStore(t, ctx)
	defer cleanup()

	vectors := map[string][]float64{
		"alpha": {1, 0, 0, 0},
		"beta":  {0.9, 0.1, 0, 0},
		"gamma": {0, 0, 1, 0},
	}
	for name, vec := range vectors {
		id, err := store.CreateNode(ctx, KindKnowledge, NodeProps{
			Name:        name,
			Description: "vector fixture",
			Summary:     "fixture summary",
		})
		require.NoError(t, err)
		require.NoError(t, store.SetEmbedding(ctx, KindKnowledge, id, vec))
	}

	// Dimension mismatch is rejected before touching the backend.
	id, err := store.CreateNode(ctx, KindKnowledge, NodeProps{
		Name: "delta", Description: "short", Summary: "s",
	})
	require.NoError(t, err)
	err = store.SetEmbedding(ctx, KindKnowledge, id, []float64{1, 0})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DIMENSION_MISMATCH))

	hits, err := store.VectorQuery(ctx, KindKnowledge, []float64{1, 0, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 2, "gamma is orthogonal and delta has no embedding")
	assert.Equal(t, "alpha", hits[0].Name)
	assert.Equal(t, "beta", hits[1].Name)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestIntegration_HybridAndRawQuery(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupNeo4jStore(t, ctx)
	defer cleanup()

	topicID, err := store.CreateNode(ctx, KindTopic, NodeProps{
		Name: "Capitals", Description: "Capital cities",
	})
	require.NoError(t, err)
	require.NoError(t, store.SetEmbedding(ctx, KindTopic, topicID, []float64{1, 0, 0, 0}))

	knowID, err := store.CreateNode(ctx, KindKnowledge, NodeProps{
		Name: "Paris fact", Description: "Paris is the capital of France", Summary: "Paris",
	})
	require.NoError(t, err)
	_ = knowID

	_, err = store.CreateEdge(ctx, KindKnowledge, []string{"Paris fact"},
		KindTopic, []string{"Capitals"}, "BELONGS_TO", "")
	require.NoError(t, err)

	hits, err := store.HybridQuery(ctx, KindTopic, []float64{1, 0, 0, 0},
		"BELONGS_TO", KindKnowledge, 5, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Capitals", hits[0].SourceName)
	assert.Equal(t, "Paris fact", hits[0].TargetName)

	rows, err := store.RawQuery(ctx, "MATCH (n:Topic) RETURN n.name AS name")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Capitals", rows[0]["name"])
}
