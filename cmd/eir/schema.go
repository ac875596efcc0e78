package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ermiller24/executive-layer/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema-init",
	Short: "Create graph constraints and indexes, then exit",
	Long: `Applies the knowledge graph schema to Neo4j: per-kind name uniqueness
constraints, name indexes, and vector indexes sized to the configured
embedding dimension. All statements are idempotent; rerunning is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(configFile)
		if err != nil {
			return err
		}

		logger := buildLogger(cfg.Logging)

		store, err := connectGraph(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close(cmd.Context())

		fmt.Printf("schema applied to %s (dimension %d)\n",
			cfg.Graph.URI, cfg.Embedding.Dimension)
		return nil
	},
}
