package cli

import (
	"errors"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	githubURL  string
	localPath  string
	includeExt string
	excludeExt string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the DocMap of a repository or directory without embedding",
	Example: `  knowledgectl analyze --local-path ./docs
  knowledgectl analyze --github-url https://github.com/qdrant/qdrant --include-ext .md`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var docmapCmd = &cobra.Command{
	Use:   "docmap <root>",
	Short: "Print the latest stored DocMap of a source root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ragService == nil {
			return errors.New("knowledge service not configured")
		}
		docMap, ok := ragService.LatestDocMap(commandContext(cmd), args[0])
		if !ok {
			return errors.New("no DocMap recorded for " + args[0])
		}
		return printJSON(cmd, api.AnalyzeResponse{DocMap: docMap})
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.githubURL, "github-url", "", "repository to clone")
	f.StringVar(&analyzeFlags.localPath, "local-path", "", "directory to walk")
	f.StringVar(&analyzeFlags.includeExt, "include-ext", "", "comma-separated extensions to keep")
	f.StringVar(&analyzeFlags.excludeExt, "exclude-ext", "", "comma-separated extensions to skip")
	rootCmd.AddCommand(analyzeCmd, docmapCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if ragService == nil {
		return errors.New("knowledge service not configured")
	}
	body := api.AnalyzeRequest{
		GithubURL: analyzeFlags.githubURL,
		LocalPath: analyzeFlags.localPath,
	}
	if analyzeFlags.includeExt != "" {
		body.IncludeExt = knowledgeModel.SplitExtList(analyzeFlags.includeExt)
	}
	if analyzeFlags.excludeExt != "" {
		body.ExcludeExt = knowledgeModel.SplitExtList(analyzeFlags.excludeExt)
	}

	docMap, err := ragService.Analyze(commandContext(cmd), adapter.ToAnalyzeRequest(body))
	if err != nil {
		return err
	}
	return printJSON(cmd, api.AnalyzeResponse{DocMap: docMap})
}
