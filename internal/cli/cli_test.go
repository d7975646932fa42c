package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/data/store"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Ingest.WorkDir = t.TempDir()
	cfg.Ingest.ChunkSize = 200
	cfg.Ingest.ChunkOverlap = 20
	s := rag.NewService(memoryDB.New(), embedding.NewRegistry(localEmbedding.New(64)), store.InitInMemoryDocMapStore(), cfg.Ingest)
	t.Cleanup(SetService(s, cfg))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags clears values left over from an earlier Execute in the same process.
func resetFlags() {
	tenant, collection = "", ""
	ingestFlags.source, ingestFlags.githubURL, ingestFlags.localPath, ingestFlags.url = "", "", "", ""
	ingestFlags.text, ingestFlags.paths = nil, nil
	ingestFlags.chunkSize, ingestFlags.chunkOverlap = 0, -1
	ingestFlags.includeExt, ingestFlags.excludeExt, ingestFlags.bindMap = "", "", ""
	ingestFlags.stageIntoBind = false
	queryK, queryThreshold, queryWithStats = 0, -1, false
	analyzeFlags.githubURL, analyzeFlags.localPath = "", ""
	analyzeFlags.includeExt, analyzeFlags.excludeExt = "", ""
	resetYes = false
	queryCmd.Flags().Lookup("threshold").Changed = false
}

func TestIngestQueryStatsReset(t *testing.T) {
	setupService(t)

	out, err := run(t, "ingest", "-c", "cli_docs",
		"--text", "Qdrant stores vectors in collections with a fixed dimension.",
		"--text", "Bananas are yellow and grow in tropical climates.")
	require.NoError(t, err)
	var ingested api.IngestResponse
	require.NoError(t, json.Unmarshal([]byte(out), &ingested))
	assert.Len(t, ingested.Indexed, 2)
	assert.Empty(t, ingested.Errors)
	assert.Equal(t, uint64(2), ingested.Stats.PointsCount)

	out, err = run(t, "query", "-c", "cli_docs", "-k", "1", "how", "does", "qdrant", "store", "vectors")
	require.NoError(t, err)
	var answered api.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &answered))
	require.Len(t, answered.Results, 1)
	assert.Contains(t, answered.Results[0].Text, "Qdrant")

	out, err = run(t, "stats", "-c", "cli_docs")
	require.NoError(t, err)
	assert.Contains(t, out, `"points_count": 2`)

	_, err = run(t, "reset", "-c", "cli_docs")
	require.Error(t, err, "reset needs --yes")

	out, err = run(t, "reset", "-c", "cli_docs", "--yes")
	require.NoError(t, err)
	var reset api.ResetResponse
	require.NoError(t, json.Unmarshal([]byte(out), &reset))
	assert.True(t, reset.Dropped)
	assert.Equal(t, "cli_docs", reset.Collection)
}

func TestQuery_MissingCollectionPrintsEmptyResults(t *testing.T) {
	setupService(t)

	out, err := run(t, "query", "-c", "nothing_here", "anything")
	require.NoError(t, err)
	var answered api.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &answered))
	assert.Empty(t, answered.Results)
}

func TestTenantPrefixesCollection(t *testing.T) {
	setupService(t)

	_, err := run(t, "ingest", "--tenant", "acme", "-c", "notes", "--text", "tenant scoped note")
	require.NoError(t, err)

	out, err := run(t, "reset", "--tenant", "acme", "-c", "notes", "-y")
	require.NoError(t, err)
	var reset api.ResetResponse
	require.NoError(t, json.Unmarshal([]byte(out), &reset))
	assert.Equal(t, "acme__notes", reset.Collection)
	assert.True(t, reset.Dropped)
}

func TestAnalyzeAndDocMap(t *testing.T) {
	setupService(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Title\n\nbody"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	out, err := run(t, "analyze", "--local-path", root, "--include-ext", ".md")
	require.NoError(t, err)
	var analyzed api.AnalyzeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &analyzed))
	require.Len(t, analyzed.DocMap.Files, 1)
	assert.Equal(t, "README.md", analyzed.DocMap.Files[0].Path)

	out, err = run(t, "docmap", analyzed.DocMap.Root)
	require.NoError(t, err)
	assert.Contains(t, out, "README.md")

	_, err = run(t, "docmap", "/never/analyzed")
	assert.Error(t, err)
}

func TestIngest_NoSourceIsAnError(t *testing.T) {
	setupService(t)

	_, err := run(t, "ingest")
	assert.Error(t, err)
}
