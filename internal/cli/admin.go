package cli

import (
	"errors"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/spf13/cobra"
)

var resetYes bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show points, files and provider of a collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if ragService == nil {
			return errors.New("knowledge service not configured")
		}
		name, err := adapter.CollectionName(collection, tenant, settings.Ingest)
		if err != nil {
			return err
		}
		stats, err := ragService.Stats(commandContext(cmd), name)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop a collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if ragService == nil {
			return errors.New("knowledge service not configured")
		}
		name, err := adapter.CollectionName(collection, tenant, settings.Ingest)
		if err != nil {
			return err
		}
		if !resetYes {
			return errors.New("refusing to drop " + name + " without --yes")
		}
		dropped, err := ragService.Reset(commandContext(cmd), name)
		if err != nil {
			return err
		}
		return printJSON(cmd, api.ResetResponse{Collection: name, Dropped: dropped})
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "confirm the drop")
	rootCmd.AddCommand(statsCmd, resetCmd)
}
