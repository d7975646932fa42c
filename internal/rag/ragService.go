package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/metrics"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/ingest"
	"github.com/akolanti/knowledgecore/internal/rag/source"
	"github.com/akolanti/knowledgecore/internal/rag/staging"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract used by handlers, the worker pool, the MCP
    tools and the CLI.
  - None of them know which vector backend or embedding provider is behind it.

2. service (Private Struct):
  - Holds the state: the vector store, the provider registry, the source
    reader and one embedding batcher per provider.
  - It is lowercase so nothing outside reaches the dependencies directly.

3. Dependency Injection (NewService):
  - Everything is passed in, so tests run on the memory store and the local
    provider without touching the network.
*/

type Service interface {
	// Ingest runs a resolved request: collection qualified, defaults applied.
	Ingest(ctx context.Context, req knowledgeModel.IngestRequest) (knowledgeModel.IngestResult, error)
	// Ask embeds the question with the provider recorded for the collection.
	// Unknown collections and unavailable providers return an empty result
	// together with a *knowledgeModel.QueryError.
	Ask(ctx context.Context, req AskRequest) (AskResult, error)
	Analyze(ctx context.Context, req knowledgeModel.AnalyzeRequest) (knowledgeModel.DocMap, error)
	Stats(ctx context.Context, collection string) (knowledgeModel.CollectionStats, error)
	Reset(ctx context.Context, collection string) (bool, error)
	LatestDocMap(ctx context.Context, root string) (knowledgeModel.DocMap, bool)
	// ProcessJob runs a queued ingest and returns the finished job.
	ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job
}

type AskRequest struct {
	Question       string
	Collection     string
	K              int
	ScoreThreshold float64
	WithStats      bool
}

type AskResult struct {
	Results        []knowledgeModel.QueryResult    `json:"results"`
	K              int                             `json:"k"`
	ScoreThreshold float64                         `json:"score_threshold"`
	Stats          *knowledgeModel.CollectionStats `json:"stats,omitempty"`
	Message        string                          `json:"message,omitempty"`
}

type service struct {
	store     vectorDB.Store
	providers *embedding.Registry
	reader    ingest.SourceReader
	docMaps   knowledgeModel.DocMapStore
	settings  config.IngestSettings
	batching  embedding.BatcherConfig

	mu        sync.Mutex
	pipelines map[string]*ingest.Pipeline

	logger *logger_i.Logger
}

// NewService wires the service. docMaps may be nil when DocMaps are not kept.
func NewService(store vectorDB.Store, providers *embedding.Registry, docMaps knowledgeModel.DocMapStore, settings config.IngestSettings) Service {
	return &service{
		store:     store,
		providers: providers,
		reader:    source.NewReader(source.DefaultOptions(settings)),
		docMaps:   docMaps,
		settings:  settings,
		batching:  embedding.DefaultBatcherConfig(),
		pipelines: make(map[string]*ingest.Pipeline),
		logger:    logger_i.NewLogger("rag_service"),
	}
}

// pipeline returns the pipeline bound to a provider. Pipelines and their
// batchers live for the whole process so every call shares one rate limiter
// per provider.
func (s *service) pipeline(p embedding.Provider) *ingest.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.pipelines[p.ID()]
	if !ok {
		pl = ingest.NewPipeline(s.reader, s.store, embedding.NewBatcher(p, s.batching), s.docMaps, s.settings.Concurrency)
		s.pipelines[p.ID()] = pl
	}
	return pl
}

func (s *service) Ingest(ctx context.Context, req knowledgeModel.IngestRequest) (knowledgeModel.IngestResult, error) {
	log := logger_i.FromContext(ctx, "rag_service").With("collection", req.Collection, "source", req.Source)

	stager, err := staging.NewManager(s.settings, req.BindMap, req.StageIntoBind)
	if err != nil {
		return knowledgeModel.IngestResult{}, err
	}
	specs, err := source.Plan(req)
	if err != nil {
		return knowledgeModel.IngestResult{}, err
	}
	specs, staged, err := stager.Prepare(specs)
	if err != nil {
		return knowledgeModel.IngestResult{}, err
	}

	provider, err := s.providers.Default()
	if err != nil {
		return knowledgeModel.IngestResult{}, &knowledgeModel.ConfigurationError{Field: "EMBEDDINGS_PROVIDER", Reason: "no embedding provider configured", Err: err}
	}

	log.Info("Ingest started", "sources", len(specs), "provider", provider.ID())
	res, err := s.pipeline(provider).Run(ctx, ingest.Request{
		Collection:   req.Collection,
		Specs:        specs,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
	})
	if len(staged) > 0 {
		res.Stats.StagedHostPath = staged[0].HostPath
		res.Stats.StagedPath = staged[0].ContainerPath
	}
	return res, err
}

func (s *service) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ask", time.Since(start)) }()

	out := AskResult{Results: []knowledgeModel.QueryResult{}, K: req.K, ScoreThreshold: req.ScoreThreshold}
	if err := vectorDB.ValidateQuery(req.K); err != nil {
		return out, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return out, knowledgeModel.NewConfigError("question", "is required")
	}

	coll, found, err := s.store.GetCollection(ctx, req.Collection)
	if err != nil {
		return out, fmt.Errorf("look up collection %q: %w", req.Collection, err)
	}
	if !found {
		return s.emptyAnswer(ctx, out, &knowledgeModel.QueryError{
			Collection: req.Collection, Reason: "collection is empty or does not exist", Err: knowledgeModel.ErrCollectionNotFound,
		})
	}

	provider, err := s.providers.Get(coll.ProviderID)
	if err != nil {
		return s.emptyAnswer(ctx, out, &knowledgeModel.QueryError{
			Collection: req.Collection, Reason: fmt.Sprintf("indexed with provider %q which is not configured", coll.ProviderID), Err: err,
		})
	}

	vector, err := s.pipeline(provider).Embedder().EmbedQuery(ctx, req.Question)
	if err != nil {
		return out, fmt.Errorf("embed question: %w", err)
	}
	results, err := s.store.Query(ctx, req.Collection, vector, req.K, req.ScoreThreshold)
	if err != nil {
		return out, fmt.Errorf("query %q: %w", req.Collection, err)
	}
	out.Results = results
	if len(results) == 0 {
		out.Message = "no chunk scored at or above the threshold"
	}

	if req.WithStats {
		if stats, err := s.store.Stats(ctx, req.Collection); err == nil {
			out.Stats = &stats
		}
	}
	return out, nil
}

func (s *service) emptyAnswer(ctx context.Context, out AskResult, qe *knowledgeModel.QueryError) (AskResult, error) {
	logger_i.FromContext(ctx, "rag_service").Info("Query answered empty", "collection", qe.Collection, "reason", qe.Reason)
	out.Message = qe.Error()
	return out, qe
}

// Analyze builds the DocMap of one repository or local path.
func (s *service) Analyze(ctx context.Context, req knowledgeModel.AnalyzeRequest) (knowledgeModel.DocMap, error) {
	filter := knowledgeModel.ExtFilter{
		Include: knowledgeModel.NormalizeExts(req.IncludeExt),
		Exclude: knowledgeModel.NormalizeExts(req.ExcludeExt),
	}

	var spec knowledgeModel.SourceSpec
	switch {
	case req.GithubURL != "" && req.LocalPath != "":
		return knowledgeModel.DocMap{}, knowledgeModel.NewConfigError("github_url", "give either github_url or local_path, not both")
	case req.GithubURL != "":
		spec = knowledgeModel.GitURL{URL: strings.TrimSpace(req.GithubURL), Filter: filter}
	case req.LocalPath != "":
		spec = knowledgeModel.LocalPath{Path: req.LocalPath, Filter: filter}
	default:
		return knowledgeModel.DocMap{}, knowledgeModel.NewConfigError("github_url", "github_url or local_path is required")
	}

	dm, err := ingest.Scan(ctx, s.reader, spec)
	if err != nil {
		return knowledgeModel.DocMap{}, err
	}
	if s.docMaps != nil {
		if err := s.docMaps.SaveDocMap(ctx, dm); err != nil {
			logger_i.FromContext(ctx, "rag_service").Warn("Could not persist docmap", "root", dm.Root, "error", err)
		}
	}
	return dm, nil
}

func (s *service) Stats(ctx context.Context, collection string) (knowledgeModel.CollectionStats, error) {
	return s.store.Stats(ctx, collection)
}

func (s *service) Reset(ctx context.Context, collection string) (bool, error) {
	dropped, err := s.store.Drop(ctx, collection)
	if err != nil {
		return false, err
	}
	logger_i.FromContext(ctx, "rag_service").Info("Collection reset", "collection", collection, "dropped", dropped)
	return dropped, nil
}

func (s *service) LatestDocMap(ctx context.Context, root string) (knowledgeModel.DocMap, bool) {
	if s.docMaps == nil {
		return knowledgeModel.DocMap{}, false
	}
	return s.docMaps.LatestDocMap(ctx, root)
}

func (s *service) ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ingest_job", time.Since(start)) }()

	log := s.logger.With("traceId", job.TraceId, "jobId", job.Id)
	job.CurrentStep = jobModel.IngestProcessing

	res, err := s.Ingest(ctx, job.JobPayload.Request)
	if res.Indexed != nil || res.Errors != nil {
		job.JobPayload.Result = &res
	}
	if err != nil {
		return s.jobError(job, err, log)
	}
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

// IsQueryError reports whether err is the soft read-path failure.
func IsQueryError(err error) bool {
	var qe *knowledgeModel.QueryError
	return errors.As(err, &qe)
}
