// Package cli is the knowledgectl command line. Every command runs the rag
// service in-process against the configured backends.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/akolanti/knowledgecore/internal/app"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	configPath string
	tenant     string
	collection string

	settings   config.Settings
	ragService rag.Service
	closeDeps  func() error
)

var rootCmd = &cobra.Command{
	Use:   "knowledgectl",
	Short: "Ingest sources into vector collections and query them",
	Long: `knowledgectl runs the knowledge core without the HTTP server.

It reads the same knowledge.yaml, .env and environment variables as the API.
For a self-contained setup use:
  VECTOR_BACKEND=sqlite EMBEDDINGS_PROVIDER=local knowledgectl ingest --local-path ./docs`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if closeDeps != nil {
			return closeDeps()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "knowledge.yaml", "path to the YAML settings file")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "tenant namespace prefixed to the collection")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "", "collection name (default from settings)")
}

func Execute() error {
	return rootCmd.Execute()
}

// SetService replaces the configured service. Used by tests.
func SetService(s rag.Service, cfg config.Settings) func() {
	prevService, prevSettings := ragService, settings
	ragService, settings = s, cfg
	return func() { ragService, settings = prevService, prevSettings }
}

func setup(cmd *cobra.Command, _ []string) error {
	if ragService != nil {
		return nil
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	config.Use(loaded)
	logger_i.InitWriter(os.Stderr)

	deps, err := app.Build(commandContext(cmd), loaded)
	if err != nil {
		return err
	}
	settings = loaded
	ragService = app.NewService(deps, loaded)
	closeDeps = deps.Close
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
