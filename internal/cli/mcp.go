package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/akolanti/knowledgecore/internal/mcpServer"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge tools over stdio",
	Long: `Serves knowledge_ingest, knowledge_query and knowledge_analyze over stdio.
Logs go to stderr so stdout stays reserved for the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if ragService == nil {
			return errors.New("knowledge service not configured")
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return mcpServer.NewServer(ragService, settings.Ingest).Run(ctx)
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
