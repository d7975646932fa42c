package cli

import (
	"errors"
	"fmt"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/spf13/cobra"
)

var ingestFlags struct {
	source        string
	githubURL     string
	localPath     string
	url           string
	text          []string
	paths         []string
	chunkSize     int
	chunkOverlap  int
	includeExt    string
	excludeExt    string
	bindMap       string
	stageIntoBind bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest sources into a collection",
	Long: `Fetches, chunks and embeds sources into a collection.

Examples:
  knowledgectl ingest --github-url https://github.com/qdrant/qdrant-client
  knowledgectl ingest --local-path ./docs --include-ext .md,.txt
  knowledgectl ingest --text "Hello world. Retrieval is great."
  knowledgectl ingest --path manual.pdf --path notes.docx`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestFlags.source, "source", "", "github, local, inline, url, pdf, txt, html or docx (inferred when empty)")
	f.StringVar(&ingestFlags.githubURL, "github-url", "", "repository to clone")
	f.StringVar(&ingestFlags.localPath, "local-path", "", "file or directory to read")
	f.StringVar(&ingestFlags.url, "url", "", "web page to fetch")
	f.StringArrayVar(&ingestFlags.text, "text", nil, "inline text to ingest (repeatable)")
	f.StringArrayVar(&ingestFlags.paths, "path", nil, "file to ingest as an item (repeatable)")
	f.IntVar(&ingestFlags.chunkSize, "chunk-size", 0, "characters per chunk (default from settings)")
	f.IntVar(&ingestFlags.chunkOverlap, "chunk-overlap", -1, "characters shared by consecutive chunks (default from settings)")
	f.StringVar(&ingestFlags.includeExt, "include-ext", "", "comma-separated extensions to keep")
	f.StringVar(&ingestFlags.excludeExt, "exclude-ext", "", "comma-separated extensions to skip")
	f.StringVar(&ingestFlags.bindMap, "bind-map", "", "HOST:CONTAINER path mapping")
	f.BoolVar(&ingestFlags.stageIntoBind, "stage-into-bind", false, "stage local sources under the bind mount")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ragService == nil {
		return errors.New("knowledge service not configured")
	}

	body := api.IngestRequest{
		Source:        ingestFlags.source,
		Collection:    collection,
		ChunkSize:     ingestFlags.chunkSize,
		GithubURL:     ingestFlags.githubURL,
		LocalPath:     ingestFlags.localPath,
		URL:           ingestFlags.url,
		BindMap:       ingestFlags.bindMap,
		StageIntoBind: ingestFlags.stageIntoBind,
	}
	if ingestFlags.chunkOverlap >= 0 {
		overlap := ingestFlags.chunkOverlap
		body.ChunkOverlap = &overlap
	}
	if ingestFlags.includeExt != "" {
		body.IncludeExt = knowledgeModel.SplitExtList(ingestFlags.includeExt)
	}
	if ingestFlags.excludeExt != "" {
		body.ExcludeExt = knowledgeModel.SplitExtList(ingestFlags.excludeExt)
	}
	for _, text := range ingestFlags.text {
		body.Items = append(body.Items, knowledgeModel.IngestItem{Content: text})
	}
	for _, path := range ingestFlags.paths {
		body.Items = append(body.Items, knowledgeModel.IngestItem{Path: path})
	}

	req, err := adapter.ToIngestRequest(body, tenant, settings.Ingest)
	if err != nil {
		return err
	}
	res, err := ragService.Ingest(commandContext(cmd), req)
	if res.Indexed != nil {
		if perr := printJSON(cmd, adapter.ToIngestResponse(res)); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if len(res.Errors) > 0 {
		cmd.PrintErrf("%d errors across %d sources\n", len(res.Errors), res.Stats.SourcesTotal)
	}
	return nil
}
