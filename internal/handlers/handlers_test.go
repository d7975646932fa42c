package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/data/store"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/job"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRagService struct {
	rag.Service
	OnIngest func(ctx context.Context, req knowledgeModel.IngestRequest) (knowledgeModel.IngestResult, error)
}

func (m *MockRagService) Ingest(ctx context.Context, req knowledgeModel.IngestRequest) (knowledgeModel.IngestResult, error) {
	if m.OnIngest != nil {
		return m.OnIngest(ctx, req)
	}
	return m.Service.Ingest(ctx, req)
}

// setup installs a handler backed by the in-memory stores and the hash embedder.
func setup(t *testing.T) (*job.Service, *MockRagService) {
	t.Helper()
	defaults := config.Defaults().Ingest
	defaults.WorkDir = t.TempDir()
	defaults.ChunkSize = 200
	defaults.ChunkOverlap = 20

	ragService := &MockRagService{
		Service: rag.NewService(memoryDB.New(), embedding.NewRegistry(localEmbedding.New(64)), store.InitInMemoryDocMapStore(), defaults),
	}
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 4),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})

	prev := handlerInstance
	handlerInstance = &JobHandler{service: jobService, ragService: ragService, defaults: defaults}
	logJH = logger_i.NewLogger("JobHandler")
	logRH = logger_i.NewLogger("RequestHandler")
	t.Cleanup(func() { handlerInstance = prev })
	return jobService, ragService
}

func request(method, target, body, tenant string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(r.Context(), config.TRACE_ID_KEY, "trace-test")
	if tenant != "" {
		ctx = context.WithValue(ctx, config.TENANT_ID_KEY, tenant)
	}
	return r.WithContext(ctx)
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestHandlers_NotReady(t *testing.T) {
	prev := handlerInstance
	handlerInstance = nil
	t.Cleanup(func() { handlerInstance = prev })

	w := serve(PostQueryHandler, request(http.MethodPost, "/ingest/query", `{"question":"x"}`, ""))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestIngestThenQuery(t *testing.T) {
	setup(t)

	w := serve(PostIngestHandler, request(http.MethodPost, "/ingest",
		`{"collection":"docs","items":[{"name":"a.md","content":"Qdrant stores vectors in collections."},{"name":"b.md","content":"Bananas are yellow."}]}`, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ingested api.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingested))
	assert.ElementsMatch(t, []string{"inline:a.md", "inline:b.md"}, ingested.Indexed)
	assert.NotNil(t, ingested.Errors)
	assert.Equal(t, "local:hash-64", ingested.Stats.Provider)

	w = serve(PostQueryHandler, request(http.MethodPost, "/ingest/query", `{"q":"how are vectors stored","collection":"docs","top_k":1}`, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answered api.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answered))
	require.Len(t, answered.Results, 1)
	assert.Equal(t, 1, answered.K)
	assert.Contains(t, answered.Results[0].Text, "Qdrant")
}

func TestQuery_Errors(t *testing.T) {
	setup(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "MissingCollectionIsEmpty", body: `{"question":"x","collection":"missing"}`, code: http.StatusOK},
		{name: "EmptyQuestion", body: `{"collection":"docs"}`, code: http.StatusBadRequest},
		{name: "NegativeK", body: `{"question":"x","k":-1}`, code: http.StatusBadRequest},
		{name: "MalformedJSON", body: `{"question":`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(PostQueryHandler, request(http.MethodPost, "/ingest/query", tt.body, ""))
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestIngest_BodyTooLarge(t *testing.T) {
	setup(t)
	body := `{"items":[{"content":"` + strings.Repeat("a", config.MaxRequestBodySize) + `"}]}`

	w := serve(PostIngestHandler, request(http.MethodPost, "/ingest", body, ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestIngest_PartialProgressReportsError(t *testing.T) {
	_, ragService := setup(t)
	ragService.OnIngest = func(context.Context, knowledgeModel.IngestRequest) (knowledgeModel.IngestResult, error) {
		return knowledgeModel.IngestResult{Indexed: []string{"a.md"}}, &knowledgeModel.ProviderAuthError{Provider: "test", Err: errors.New("invalid key")}
	}

	w := serve(PostIngestHandler, request(http.MethodPost, "/ingest", `{"items":[{"content":"x"}]}`, ""))
	require.Equal(t, http.StatusBadGateway, w.Code)
	var res api.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"a.md"}, res.Indexed)
	require.NotNil(t, res.Error)
	assert.Equal(t, http.StatusBadGateway, res.Error.Code)
}

func TestIngestJob_QueuedAndScopedToTenant(t *testing.T) {
	jobService, _ := setup(t)

	w := serve(PostIngestJobHandler, request(http.MethodPost, "/ingest/jobs", `{"collection":"docs","items":[{"content":"hello"}]}`, "acme"))
	require.Equal(t, http.StatusAccepted, w.Code)
	var created api.InitJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "status/"+created.Id, created.StatusURL)

	queued := <-jobService.JobChannel
	assert.Equal(t, created.Id, queued.Id)
	assert.Equal(t, "acme", queued.Tenant)
	assert.Equal(t, "acme__docs", queued.JobPayload.Request.Collection)
	assert.Equal(t, knowledgeModel.KindInline, queued.JobPayload.Request.Source)

	router := chi.NewRouter()
	router.Get("/status/{id}", GetStatusHandler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, request(http.MethodGet, "/status/"+created.Id, "", "acme"))
	require.Equal(t, http.StatusOK, rec.Code)
	var status api.JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, string(jobModel.JobStatusQueued), status.Result.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, request(http.MethodGet, "/status/"+created.Id, "", "other"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeDocMapStatsReset(t *testing.T) {
	setup(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.md"), []byte("# Guide\n\nSteps."), 0o644))

	body, _ := json.Marshal(api.AnalyzeRequest{LocalPath: root})
	w := serve(PostAnalyzeHandler, request(http.MethodPost, "/analyze", string(body), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analyzed api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analyzed))
	require.Len(t, analyzed.DocMap.Files, 1)

	w = serve(GetDocMapHandler, request(http.MethodGet, "/docmap?root="+analyzed.DocMap.Root, "", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(GetDocMapHandler, request(http.MethodGet, "/docmap", "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(PostAnalyzeHandler, request(http.MethodPost, "/analyze", `{}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(PostIngestHandler, request(http.MethodPost, "/ingest", `{"items":[{"content":"hello there"}]}`, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(GetStatsHandler, request(http.MethodGet, "/knowledge/stats", "", ""))
	require.Equal(t, http.StatusOK, w.Code)
	var stats api.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, uint64(1), stats.PointsCount)

	w = serve(PostResetHandler, request(http.MethodPost, "/knowledge/reset", "", ""))
	require.Equal(t, http.StatusOK, w.Code)
	var reset api.ResetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reset))
	assert.True(t, reset.Dropped)
	assert.Equal(t, config.DefaultCollection, reset.Collection)
}

func uploadRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := request(http.MethodPost, "/ingest/files", buf.String(), "")
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestIngestFiles_UploadsAreIndexedAndQueryable(t *testing.T) {
	setup(t)
	files := map[string]string{
		"guide.md":  "# Guide\n\nQdrant stores vectors in collections.",
		"notes.txt": "Bananas are yellow.",
	}

	w := serve(PostIngestFilesHandler, uploadRequest(t, map[string]string{"collection": "docs", "chunk_size": "200"}, files))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ingested api.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingested))
	require.Len(t, ingested.Indexed, 2)
	assert.Empty(t, ingested.Errors)
	dir := uploadDir(handlerInstance.defaults.WorkDir, "docs")
	assert.ElementsMatch(t, []string{filepath.Join(dir, "guide.md"), filepath.Join(dir, "notes.txt")}, ingested.Indexed)
	assert.Equal(t, 2, ingested.Stats.ChunksEmbedded)

	w = serve(PostQueryHandler, request(http.MethodPost, "/ingest/query", `{"question":"how are vectors stored","collection":"docs","k":1}`, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answered api.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answered))
	require.Len(t, answered.Results, 1)
	assert.Contains(t, answered.Results[0].Text, "Qdrant")

	// the same upload again keeps its document keys and embeds nothing
	w = serve(PostIngestFilesHandler, uploadRequest(t, map[string]string{"collection": "docs", "chunk_size": "200"}, files))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingested))
	assert.Equal(t, 0, ingested.Stats.ChunksEmbedded)
	assert.Equal(t, 2, ingested.Stats.ChunksSkipped)
	assert.Equal(t, uint64(2), ingested.Stats.PointsCount)
}

func TestIngestFiles_Rejects(t *testing.T) {
	setup(t)

	w := serve(PostIngestFilesHandler, uploadRequest(t, map[string]string{"collection": "docs"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(PostIngestFilesHandler, uploadRequest(t, map[string]string{"chunk_size": "big"}, map[string]string{"a.md": "a"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(PostIngestFilesHandler, request(http.MethodPost, "/ingest/files", `{"items":[]}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
