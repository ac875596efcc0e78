package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "eir",
	Short: "EIR - Executive Interrupting Rectifier gateway",
	Long: `EIR is an OpenAI-compatible chat gateway that runs two LLM workers per
request: a Speaker that streams the visible answer, and an Executive that
checks the answer against a Neo4j knowledge graph and may splice one
corrective interruption into the stream.

Running without a subcommand starts the gateway, same as "eir serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command under signal-driven cancellation.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to the YAML config file (default eir.yaml, or $EIR_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)
}
