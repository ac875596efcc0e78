package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ermiller24/executive-layer/internal/config"
	"github.com/ermiller24/executive-layer/internal/embedding"
	"github.com/ermiller24/executive-layer/internal/graph"
	"github.com/ermiller24/executive-layer/internal/knowledge"
	"github.com/ermiller24/executive-layer/internal/observability"
	"github.com/ermiller24/executive-layer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OpenAI-compatible gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return err
	}

	store, err := connectGraph(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	tools := knowledge.NewTools(store, embedder, logger)
	srv := server.New(cfg, tools, embedder, logger, nil)

	httpSrv := &http.Server{
		Addr:    srv.Addr(),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			"addr", httpSrv.Addr,
			"speaker_model", cfg.Speaker.Model,
			"executive_model", cfg.Executive.Model,
			"debug", cfg.Server.Debug)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", cfg.Orchestrator.CancelGrace)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Orchestrator.CancelGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}

	// Knowledge writebacks outlive their requests; drain them before closing
	// the graph connection.
	srv.WaitForWritebacks()

	return nil
}

// graphClientConfig overlays the configured connection fields on the driver
// defaults, which carry the pool size and timeout settings.
func graphClientConfig(cfg config.GraphConfig) graph.ClientConfig {
	cc := graph.DefaultClientConfig()
	cc.URI = cfg.URI
	cc.Username = cfg.Username
	cc.Password = cfg.Password
	cc.Database = cfg.Database
	return cc
}

// connectGraph dials Neo4j, verifies connectivity and applies the schema.
func connectGraph(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*graph.CypherStore, error) {
	client, err := graph.NewNeo4jClient(graphClientConfig(cfg.Graph))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	store := graph.NewCypherStore(client, cfg.Embedding.Dimension, logger)
	if err := store.SchemaInit(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, err
	}
	return store, nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = observability.NewTextHandler(os.Stderr, level)
	} else {
		handler = observability.NewJSONHandler(os.Stderr, level)
	}
	return slog.New(handler)
}
