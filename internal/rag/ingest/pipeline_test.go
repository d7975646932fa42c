package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/knowledgecore/internal/data/store"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/knowledgecore/internal/rag/source"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps the local provider and records every call.
type countingProvider struct {
	embedding.Provider
	calls  atomic.Int32
	texts  atomic.Int32
	OnCall func(texts []string) error
}

func (c *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	if c.OnCall != nil {
		if err := c.OnCall(texts); err != nil {
			return nil, err
		}
	}
	return c.Provider.Embed(ctx, texts)
}

type fixture struct {
	provider *countingProvider
	store    *memoryDB.Store
	docMaps  *store.InMemoryDocMapStore
	pipeline *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := &countingProvider{Provider: localEmbedding.New(64)}
	vectors := memoryDB.New()
	docMaps := store.InitInMemoryDocMapStore()
	batcher := embedding.NewBatcher(provider, embedding.BatcherConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		MaxAttempts:     2,
		BatchTimeout:    time.Second,
	})
	reader := source.NewReader(source.Options{WorkDir: t.TempDir()})
	return &fixture{
		provider: provider,
		store:    vectors,
		docMaps:  docMaps,
		pipeline: NewPipeline(reader, vectors, batcher, docMaps, 4),
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func TestRun_InlineExampleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := Request{
		Collection:   "workshop_docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.InlineText{Name: "snippet.md", Text: "Hello world. Retrieval is great."}},
		ChunkSize:    1000,
		ChunkOverlap: 0,
	}

	res, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"inline:snippet.md"}, res.Indexed)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Stats.ChunksTotal)
	assert.Equal(t, 1, res.Stats.ChunksEmbedded)
	assert.Equal(t, uint64(1), res.Stats.PointsCount)
	assert.Equal(t, f.provider.ID(), res.Stats.Provider)

	query, err := f.provider.Embed(ctx, []string{"greeting"})
	require.NoError(t, err)
	hits, err := f.store.Query(ctx, "workshop_docs", query[0], 1, 0.0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Text, "Hello world.")

	again, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Stats.ChunksEmbedded)
	assert.Equal(t, 1, again.Stats.ChunksSkipped)
	assert.Equal(t, uint64(1), again.Stats.PointsCount)
}

func TestRun_IdempotentOverDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":      "# Intro\n\n" + strings.Repeat("Alpha beta gamma. ", 40),
		"guide/setup.md": "# Setup\n\n" + strings.Repeat("Install the tool. ", 30),
		"guide/copy.md":  "# Intro\n\n" + strings.Repeat("Alpha beta gamma. ", 40),
		"image.png":      "binary",
	})
	f := newFixture(t)
	ctx := context.Background()
	req := Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: root, Filter: knowledgeModel.ExtFilter{Include: []string{".md"}}}},
		ChunkSize:    200,
		ChunkOverlap: 20,
	}

	first, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.DocMaps, 1)
	assert.Equal(t, 3, first.Stats.Files)
	assert.Positive(t, first.Stats.ChunksEmbedded)
	assert.Equal(t, first.Stats.ChunksTotal, first.Stats.ChunksEmbedded)

	byPath := map[string]string{}
	for _, e := range first.DocMaps[0].Files {
		byPath[e.Path] = e.ContentHash
	}
	assert.Equal(t, byPath["README.md"], byPath["guide/copy.md"])
	assert.NotEqual(t, byPath["README.md"], byPath["guide/setup.md"])

	callsBefore := f.provider.calls.Load()
	second, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.DocMaps, second.DocMaps)
	assert.Equal(t, first.Stats.PointsCount, second.Stats.PointsCount)
	assert.Equal(t, 0, second.Stats.ChunksEmbedded)
	assert.Equal(t, first.Stats.ChunksTotal, second.Stats.ChunksSkipped)
	assert.Equal(t, callsBefore, f.provider.calls.Load())

	latest, ok := f.docMaps.LatestDocMap(ctx, root)
	require.True(t, ok)
	assert.Equal(t, second.DocMaps[0], latest)
}

func TestRun_ChangedFileReembedsOnlyChangedChunksAndPrunes(t *testing.T) {
	para := func(word string) string { return strings.Repeat(word+" ", 30) + "\n\n" }
	body := para("one") + para("two") + para("three") + para("four")
	root := writeTree(t, map[string]string{"doc.md": body})

	f := newFixture(t)
	ctx := context.Background()
	req := Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: root}},
		ChunkSize:    200,
		ChunkOverlap: 0,
	}
	first, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 4, first.Stats.ChunksTotal)

	// last paragraph changes
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.md"), []byte(para("one")+para("two")+para("three")+para("FOUR")), 0o644))
	changed, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, changed.Stats.ChunksEmbedded)
	assert.Equal(t, 3, changed.Stats.ChunksSkipped)
	assert.Equal(t, uint64(4), changed.Stats.PointsCount)

	// file shrinks to two paragraphs; the new last chunk loses its trailing
	// blank line so it is re-embedded
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.md"), []byte(para("one")+para("two")), 0o644))
	shrunk, err := f.pipeline.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, shrunk.Stats.ChunksEmbedded)
	assert.Equal(t, 1, shrunk.Stats.ChunksSkipped)
	assert.Equal(t, 2, shrunk.Stats.ChunksPruned)
	assert.Equal(t, uint64(2), shrunk.Stats.PointsCount)
}

func TestRun_PartialFailure(t *testing.T) {
	valid := writeTree(t, map[string]string{"a.md": "# A\n\nsome text"})
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	f := newFixture(t)
	res, err := f.pipeline.Run(context.Background(), Request{
		Collection: "docs",
		Specs: []knowledgeModel.SourceSpec{
			knowledgeModel.LocalPath{Path: valid},
			knowledgeModel.LocalPath{Path: missing},
		},
		ChunkSize:    500,
		ChunkOverlap: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{valid}, res.Indexed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, missing, res.Errors[0].Source)
	assert.Equal(t, "source_fetch", res.Errors[0].Kind)
	assert.Equal(t, 2, res.Stats.SourcesTotal)
	assert.Equal(t, 1, res.Stats.SourcesFailed)
}

func TestRun_AllSourcesFailLeavesNoCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.pipeline.Run(ctx, Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: filepath.Join(t.TempDir(), "nope")}},
		ChunkSize:    500,
		ChunkOverlap: 0,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Indexed)

	_, found, err := f.store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRun_ConfigErrorsAbortBeforeFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	spec := knowledgeModel.InlineText{Name: "a.md", Text: "text"}

	_, err := f.pipeline.Run(ctx, Request{Collection: "docs", Specs: []knowledgeModel.SourceSpec{spec}, ChunkSize: 100, ChunkOverlap: 100})
	assert.True(t, knowledgeModel.IsConfigError(err))

	_, err = f.pipeline.Run(ctx, Request{Collection: "docs", Specs: []knowledgeModel.SourceSpec{spec}, ChunkSize: 0})
	assert.True(t, knowledgeModel.IsConfigError(err))

	_, err = f.store.EnsureCollection(ctx, knowledgeModel.Collection{Name: "small", EmbeddingDim: 3, ProviderID: "other"})
	require.NoError(t, err)
	_, err = f.pipeline.Run(ctx, Request{Collection: "small", Specs: []knowledgeModel.SourceSpec{spec}, ChunkSize: 100})
	assert.True(t, knowledgeModel.IsConfigError(err))
	assert.ErrorIs(t, err, knowledgeModel.ErrDimensionMismatch)
	assert.Zero(t, f.provider.calls.Load())
}

func TestRun_AuthErrorAbortsCall(t *testing.T) {
	f := newFixture(t)
	f.provider.OnCall = func([]string) error {
		return &knowledgeModel.ProviderAuthError{Provider: "local", Err: errors.New("bad key")}
	}

	res, err := f.pipeline.Run(context.Background(), Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.InlineText{Name: "a.md", Text: "some text"}},
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	require.Error(t, err)
	assert.True(t, knowledgeModel.IsAuthError(err))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "provider_auth", res.Errors[0].Kind)
	assert.Equal(t, int32(1), f.provider.calls.Load())
}

func TestRun_RateLimitExhaustionIsPerSource(t *testing.T) {
	f := newFixture(t)
	f.provider.OnCall = func(texts []string) error {
		if strings.Contains(texts[0], "throttled") {
			return &knowledgeModel.ProviderRateLimitError{Provider: "local", Err: errors.New("429")}
		}
		return nil
	}

	res, err := f.pipeline.Run(context.Background(), Request{
		Collection: "docs",
		Specs: []knowledgeModel.SourceSpec{
			knowledgeModel.InlineText{Name: "ok.md", Text: "fine text"},
			knowledgeModel.InlineText{Name: "slow.md", Text: "throttled text"},
		},
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inline:ok.md"}, res.Indexed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "provider_rate_limit", res.Errors[0].Kind)
	// the failed document still shows up in its DocMap
	assert.Len(t, res.DocMaps, 2)
}

func TestRun_MalformedDocumentDoesNotSinkSource(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md":   "alpha notes",
		"b.md":   "beta notes",
		"c.md":   "gamma notes",
		"d.md":   "delta notes",
		"e.md":   "epsilon notes",
		"bad.md": "MALFORMED payload",
	})
	f := newFixture(t)
	f.provider.OnCall = func(texts []string) error {
		for _, text := range texts {
			if strings.Contains(text, "MALFORMED") {
				return fmt.Errorf("local: %w: rejected", knowledgeModel.ErrMalformedInput)
			}
		}
		return nil
	}

	res, err := f.pipeline.Run(context.Background(), Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: root}},
		ChunkSize:    500,
		ChunkOverlap: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{root}, res.Indexed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, root+"#bad.md", res.Errors[0].Source)
	assert.Equal(t, "malformed_input", res.Errors[0].Kind)
	assert.Equal(t, 0, res.Stats.SourcesFailed)
	assert.Equal(t, 5, res.Stats.ChunksEmbedded)
	assert.Equal(t, uint64(5), res.Stats.PointsCount)
	require.Len(t, res.DocMaps, 1)
	assert.Len(t, res.DocMaps[0].Files, 6)

	// the rejected document is retried on the next call
	f.provider.OnCall = nil
	again, err := f.pipeline.Run(context.Background(), Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: root}},
		ChunkSize:    500,
		ChunkOverlap: 0,
	})
	require.NoError(t, err)
	assert.Empty(t, again.Errors)
	assert.Equal(t, 1, again.Stats.ChunksEmbedded)
	assert.Equal(t, uint64(6), again.Stats.PointsCount)
}

func TestRun_OnlyMalformedDocumentFailsSource(t *testing.T) {
	f := newFixture(t)
	f.provider.OnCall = func([]string) error {
		return fmt.Errorf("local: %w: rejected", knowledgeModel.ErrMalformedInput)
	}

	res, err := f.pipeline.Run(context.Background(), Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.InlineText{Name: "bad.md", Text: "MALFORMED"}},
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Indexed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "inline:bad.md", res.Errors[0].Source)
	assert.Equal(t, "malformed_input", res.Errors[0].Kind)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx, Request{
		Collection:   "docs",
		Specs:        []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: t.TempDir()}},
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "timeout", failureKind(context.DeadlineExceeded))
	assert.Equal(t, "malformed_input", failureKind(knowledgeModel.ErrMalformedInput))
	assert.Equal(t, "internal", failureKind(errors.New("boom")))
}
