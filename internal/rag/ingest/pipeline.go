package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/metrics"
	"github.com/akolanti/knowledgecore/internal/rag/docmap"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/source"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// SourceReader opens one source spec. *source.Reader implements it.
type SourceReader interface {
	Open(ctx context.Context, spec knowledgeModel.SourceSpec) (*source.Batch, error)
}

// Request is one ingest call after planning and staging.
type Request struct {
	Collection   string
	Specs        []knowledgeModel.SourceSpec
	ChunkSize    int
	ChunkOverlap int
}

type Pipeline struct {
	reader      SourceReader
	store       vectorDB.Store
	batcher     *embedding.Batcher
	docMaps     knowledgeModel.DocMapStore
	concurrency int
	flushSize   int
	logger      *logger_i.Logger
}

// NewPipeline wires a pipeline to one embedding provider. docMaps may be nil.
func NewPipeline(reader SourceReader, store vectorDB.Store, batcher *embedding.Batcher, docMaps knowledgeModel.DocMapStore, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = config.DefaultIngestConcurrency
	}
	flush := batcher.Provider().MaxBatch()
	if flush <= 0 {
		flush = config.DefaultEmbedFlushSize
	}
	return &Pipeline{
		reader:      reader,
		store:       store,
		batcher:     batcher,
		docMaps:     docMaps,
		concurrency: concurrency,
		flushSize:   flush,
		logger:      logger_i.NewLogger("ingest_pipeline"),
	}
}

func (p *Pipeline) Provider() embedding.Provider { return p.batcher.Provider() }

// Embedder exposes the pipeline's batcher so queries share its rate limiter.
func (p *Pipeline) Embedder() *embedding.Batcher { return p.batcher }

// sourceOutcome is the result of one source: either indexed or failed, plus
// counters and the DocMap of whatever was read.
type sourceOutcome struct {
	ref      string
	kind     knowledgeModel.SourceKind
	err      error
	docMap   *knowledgeModel.DocMap
	files    int
	total    int
	embedded int
	skipped  int
	pruned   int
	// documents the provider rejected as malformed; the rest of the source
	// is still indexed
	rejected []rejectedDoc
}

type rejectedDoc struct {
	path string
	err  error
}

// Run ingests every source of req. Configuration problems abort before any
// fetch; a failing source is reported in the result and the rest continue.
// A ProviderAuthError or cancellation stops the call, keeping what was
// already written.
func (p *Pipeline) Run(ctx context.Context, req Request) (knowledgeModel.IngestResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ingest", time.Since(start)) }()

	log := logger_i.FromContext(ctx, "ingest_pipeline").With("collection", req.Collection)
	provider := p.batcher.Provider()

	chunker, err := NewChunker(req.ChunkSize, req.ChunkOverlap)
	if err != nil {
		return knowledgeModel.IngestResult{}, err
	}
	want := knowledgeModel.Collection{Name: req.Collection, EmbeddingDim: provider.Dimension(), ProviderID: provider.ID()}
	if err := p.checkCollection(ctx, want, log); err != nil {
		return knowledgeModel.IngestResult{}, err
	}
	ensure := p.lazyEnsure(want)

	outcomes := make([]sourceOutcome, len(req.Specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, spec := range req.Specs {
		if gctx.Err() != nil {
			outcomes[i] = sourceOutcome{ref: spec.Ref(), kind: spec.Kind(), err: gctx.Err()}
			continue
		}
		g.Go(func() error {
			out := p.ingestSource(gctx, spec, chunker, req.Collection, ensure)
			outcomes[i] = out
			if knowledgeModel.IsAuthError(out.err) {
				return out.err
			}
			return nil
		})
	}
	fatal := g.Wait()

	res := p.collect(ctx, req.Collection, outcomes)
	res.Stats.DurationMs = time.Since(start).Milliseconds()

	if fatal == nil {
		fatal = ctx.Err()
	}
	if fatal != nil {
		log.Error("Ingest stopped", "error", fatal, "indexed", len(res.Indexed), "failed", len(res.Errors))
		return res, fatal
	}
	log.Info("Ingest complete",
		"sources", res.Stats.SourcesTotal,
		"failed", res.Stats.SourcesFailed,
		"embedded", res.Stats.ChunksEmbedded,
		"skipped", res.Stats.ChunksSkipped,
		"pruned", res.Stats.ChunksPruned,
	)
	return res, nil
}

// checkCollection fails fast when the collection already holds vectors of a
// different dimension.
func (p *Pipeline) checkCollection(ctx context.Context, want knowledgeModel.Collection, log *logger_i.Logger) error {
	existing, found, err := p.store.GetCollection(ctx, want.Name)
	if err != nil {
		return fmt.Errorf("look up collection %q: %w", want.Name, err)
	}
	if !found {
		return nil
	}
	if err := vectorDB.CheckDimension(existing, want); err != nil {
		return err
	}
	if existing.ProviderID != "" && existing.ProviderID != want.ProviderID {
		log.Warn("Collection was indexed with another provider of the same dimension",
			"recorded", existing.ProviderID, "current", want.ProviderID)
	}
	return nil
}

// lazyEnsure creates the collection on the first upsert only, so a call
// where every source fails leaves no empty collection behind.
func (p *Pipeline) lazyEnsure(want knowledgeModel.Collection) func(context.Context) error {
	var (
		mu   sync.Mutex
		done bool
	)
	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return nil
		}
		if _, err := p.store.EnsureCollection(ctx, want); err != nil {
			return err
		}
		done = true
		return nil
	}
}

func (p *Pipeline) ingestSource(ctx context.Context, spec knowledgeModel.SourceSpec, chunker *Chunker, collection string, ensure func(context.Context) error) sourceOutcome {
	out := sourceOutcome{ref: spec.Ref(), kind: spec.Kind()}
	log := logger_i.FromContext(ctx, "ingest_pipeline").With("source", out.ref, "kind", out.kind)

	batch, err := p.reader.Open(ctx, spec)
	if err != nil {
		log.Warn("Source failed", "error", err)
		out.err = err
		return out
	}

	builder := docmap.NewBuilder(batch.Origin)
	w := &sourceWriter{
		pipeline:   p,
		collection: collection,
		ensure:     ensure,
		out:        &out,
	}

	for doc, err := range batch.Docs {
		if err != nil {
			out.err = err
			break
		}
		builder.Add(doc)
		out.files++
		if err := w.add(ctx, doc, chunker.Split(doc.Text)); err != nil {
			out.err = err
			break
		}
	}
	if out.err == nil || !knowledgeModel.IsAuthError(out.err) {
		if err := w.flush(ctx); err != nil && out.err == nil {
			out.err = err
		}
	}

	if builder.Len() > 0 {
		dm := builder.DocMap()
		out.docMap = &dm
		p.saveDocMap(ctx, dm, log)
	}
	if out.err == nil && out.files == 0 {
		out.err = &knowledgeModel.SourceFetchError{Source: out.ref, Kind: out.kind, Err: knowledgeModel.ErrEmptyContent}
	}
	if out.err == nil && len(out.rejected) == out.files {
		out.err = out.rejected[0].err
		out.rejected = nil
	}
	if out.err != nil {
		log.Warn("Source failed", "error", out.err, "files", out.files)
	} else {
		log.Debug("Source indexed", "files", out.files, "embedded", out.embedded, "skipped", out.skipped)
	}
	return out
}

func (p *Pipeline) saveDocMap(ctx context.Context, dm knowledgeModel.DocMap, log *logger_i.Logger) {
	if p.docMaps == nil {
		return
	}
	if err := p.docMaps.SaveDocMap(ctx, dm); err != nil {
		log.Warn("Could not persist docmap", "root", dm.Root, "error", err)
	}
}

// pendingDoc is a document whose changed chunks wait for the next flush.
type pendingDoc struct {
	key       string
	path      string
	chunks    []knowledgeModel.Chunk
	staleFrom int // prune ordinals >= staleFrom, -1 when nothing is stale
}

// sourceWriter groups the changed chunks of several documents into
// provider-sized embedding calls. Chunk order within a document is kept.
type sourceWriter struct {
	pipeline   *Pipeline
	collection string
	ensure     func(context.Context) error
	out        *sourceOutcome

	pending []pendingDoc
	count   int
}

func (w *sourceWriter) add(ctx context.Context, doc knowledgeModel.RawDocument, texts []string) error {
	store := w.pipeline.store
	stored, err := store.ChunkHashes(ctx, w.collection, doc.Key)
	if err != nil {
		return fmt.Errorf("read stored hashes for %s: %w", doc.Path, err)
	}

	pd := pendingDoc{key: doc.Key, path: doc.Path, staleFrom: -1}
	for ord := range stored {
		if ord >= len(texts) {
			pd.staleFrom = len(texts)
			break
		}
	}

	w.out.total += len(texts)
	for ord, text := range texts {
		hash := HashText(text)
		if stored[ord] == hash {
			w.out.skipped++
			continue
		}
		pd.chunks = append(pd.chunks, knowledgeModel.Chunk{
			ChunkID:     ChunkID(w.collection, doc.Key, ord),
			SourceRef:   doc.SourceRef,
			SourceKey:   doc.Key,
			SourcePath:  doc.Path,
			Ordinal:     ord,
			Text:        text,
			ContentHash: hash,
			Title:       doc.Title,
		})
	}
	if len(pd.chunks) == 0 && pd.staleFrom < 0 {
		return nil
	}

	w.pending = append(w.pending, pd)
	w.count += len(pd.chunks)
	if w.count >= w.pipeline.flushSize {
		return w.flush(ctx)
	}
	return nil
}

// flush embeds every pending chunk in one batched call, upserts them and
// prunes ordinals the documents no longer have.
func (w *sourceWriter) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	pending := w.pending
	w.pending, w.count = nil, 0

	var texts []string
	for _, pd := range pending {
		for _, c := range pd.chunks {
			texts = append(texts, c.Text)
		}
	}

	if len(texts) > 0 {
		vectors, err := w.pipeline.batcher.Embed(ctx, texts)
		if errors.Is(err, knowledgeModel.ErrMalformedInput) {
			if len(pending) == 1 {
				w.reject(ctx, pending[0], err)
				return nil
			}
			return w.flushEach(ctx, pending)
		}
		if err != nil {
			return fmt.Errorf("embed %d chunks: %w", len(texts), err)
		}
		if err := w.upsert(ctx, pending, vectors); err != nil {
			return err
		}
	}
	return w.prune(ctx, pending)
}

// flushEach embeds the pending documents one at a time after a batch was
// rejected as malformed, so only the offending documents are dropped.
func (w *sourceWriter) flushEach(ctx context.Context, pending []pendingDoc) error {
	logger_i.FromContext(ctx, "ingest_pipeline").Warn("Batch rejected as malformed, embedding documents one by one",
		"source", w.out.ref, "documents", len(pending))

	kept := make([]pendingDoc, 0, len(pending))
	for _, pd := range pending {
		if len(pd.chunks) == 0 {
			kept = append(kept, pd)
			continue
		}
		texts := make([]string, len(pd.chunks))
		for i, c := range pd.chunks {
			texts[i] = c.Text
		}
		vectors, err := w.pipeline.batcher.Embed(ctx, texts)
		if errors.Is(err, knowledgeModel.ErrMalformedInput) {
			w.reject(ctx, pd, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("embed %d chunks: %w", len(texts), err)
		}
		if err := w.upsert(ctx, []pendingDoc{pd}, vectors); err != nil {
			return err
		}
		kept = append(kept, pd)
	}
	return w.prune(ctx, kept)
}

// reject drops a document's changed chunks. Its stored chunks stay as they
// were and the document is retried on the next call.
func (w *sourceWriter) reject(ctx context.Context, pd pendingDoc, err error) {
	logger_i.FromContext(ctx, "ingest_pipeline").Warn("Document rejected", "source", w.out.ref, "path", pd.path, "error", err)
	w.out.rejected = append(w.out.rejected, rejectedDoc{path: pd.path, err: fmt.Errorf("embed %s: %w", pd.path, err)})
}

func (w *sourceWriter) upsert(ctx context.Context, pending []pendingDoc, vectors [][]float32) error {
	now := time.Now()
	chunks := make([]knowledgeModel.Chunk, 0, len(vectors))
	i := 0
	for _, pd := range pending {
		for _, c := range pd.chunks {
			c.Embedding = vectors[i]
			c.UpsertedAt = now
			chunks = append(chunks, c)
			i++
		}
	}

	if err := w.ensure(ctx); err != nil {
		return err
	}
	if err := w.pipeline.store.Upsert(ctx, w.collection, chunks); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(chunks), err)
	}
	w.out.embedded += len(chunks)
	return nil
}

func (w *sourceWriter) prune(ctx context.Context, pending []pendingDoc) error {
	for _, pd := range pending {
		if pd.staleFrom < 0 {
			continue
		}
		n, err := w.pipeline.store.Prune(ctx, w.collection, pd.key, pd.staleFrom)
		if err != nil {
			return fmt.Errorf("prune %s: %w", pd.key, err)
		}
		w.out.pruned += n
	}
	return nil
}

func (p *Pipeline) collect(ctx context.Context, collection string, outcomes []sourceOutcome) knowledgeModel.IngestResult {
	res := knowledgeModel.IngestResult{
		Indexed: []string{},
		Errors:  []knowledgeModel.SourceFailure{},
		Stats: knowledgeModel.IngestStats{
			Collection:   collection,
			Provider:     p.batcher.Provider().ID(),
			SourcesTotal: len(outcomes),
		},
	}

	for _, o := range outcomes {
		res.Stats.Files += o.files
		res.Stats.ChunksTotal += o.total
		res.Stats.ChunksEmbedded += o.embedded
		res.Stats.ChunksSkipped += o.skipped
		res.Stats.ChunksPruned += o.pruned
		if o.docMap != nil {
			res.DocMaps = append(res.DocMaps, *o.docMap)
		}
		for _, r := range o.rejected {
			res.Errors = append(res.Errors, knowledgeModel.SourceFailure{
				Source:  o.ref + "#" + r.path,
				Kind:    failureKind(r.err),
				Message: r.err.Error(),
			})
		}

		if o.err == nil {
			res.Indexed = append(res.Indexed, o.ref)
			metrics.ObserveIngestSource(string(o.kind), "ok")
			continue
		}
		res.Stats.SourcesFailed++
		res.Errors = append(res.Errors, knowledgeModel.SourceFailure{
			Source:  o.ref,
			Kind:    failureKind(o.err),
			Message: o.err.Error(),
		})
		metrics.ObserveIngestSource(string(o.kind), "error")
	}
	metrics.AddIngestChunks("embedded", res.Stats.ChunksEmbedded)
	metrics.AddIngestChunks("skipped", res.Stats.ChunksSkipped)
	metrics.AddIngestChunks("pruned", res.Stats.ChunksPruned)

	// stats are read even after a cancelled call
	statsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.StatsTimeout)
	defer cancel()
	if stats, err := p.store.Stats(statsCtx, collection); err == nil {
		res.Stats.PointsCount = stats.PointsCount
	}
	return res
}

// failureKind names the error class reported to callers.
func failureKind(err error) string {
	var sfe *knowledgeModel.SourceFetchError
	switch {
	case errors.As(err, &sfe):
		return "source_fetch"
	case knowledgeModel.IsAuthError(err):
		return "provider_auth"
	case knowledgeModel.IsRateLimitError(err):
		return "provider_rate_limit"
	case knowledgeModel.IsConfigError(err):
		return "configuration"
	case errors.Is(err, knowledgeModel.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "internal"
}
