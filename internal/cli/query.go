package cli

import (
	"errors"
	"strings"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/spf13/cobra"
)

var (
	queryK         int
	queryThreshold float64
	queryWithStats bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Return the chunks closest to a question",
	Example: `  knowledgectl query "How do I create a collection?" -k 4
  knowledgectl query --threshold 0.5 -c workshop_docs "payload filters"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of results (default 6)")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", -1, "minimum similarity score (default 0)")
	queryCmd.Flags().BoolVar(&queryWithStats, "with-stats", false, "include collection stats")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("knowledge service not configured")
	}
	body := api.QueryRequest{
		Question:   strings.Join(args, " "),
		Collection: collection,
		K:          queryK,
		WithStats:  queryWithStats,
	}
	if cmd.Flags().Changed("threshold") {
		threshold := queryThreshold
		body.ScoreThreshold = &threshold
	}

	req, err := adapter.ToAskRequest(body, tenant, settings.Ingest)
	if err != nil {
		return err
	}
	res, err := ragService.Ask(commandContext(cmd), req)
	if err != nil && !rag.IsQueryError(err) {
		return err
	}
	if res.Message != "" {
		cmd.PrintErrln(res.Message)
	}
	return printJSON(cmd, adapter.ToQueryResponse(res))
}
