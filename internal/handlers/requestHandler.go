package handlers

import (
	"net/http"
	"strings"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/adapter/utils"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

var logRH *logger_i.Logger

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostIngestHandler godoc
// @Summary      Ingest sources into a collection
// @Description  Fetches, chunks, embeds and upserts the requested sources. Partial failures still return 200 with the failed sources in errors.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Id  header    string              false  "Tenant namespace"
// @Param        request      body      api.IngestRequest   true   "Sources and chunking parameters"
// @Success      200          {object}  api.IngestResponse  "Indexed sources and post stats"
// @Failure      400          {object}  api.ErrorResponse   "Invalid chunking, bind map or collection"
// @Failure      502          {object}  api.ErrorResponse   "Embedding provider rejected the credentials"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	req, ok := decodeIngest(w, r)
	if !ok {
		return
	}

	res, err := handlerInstance.ragService.Ingest(r.Context(), req)
	writeIngestResult(w, r, res, err)
}

// PostIngestJobHandler godoc
// @Summary      Queue an ingest job
// @Description  Takes the same body as /ingest, queues it on the worker pool and returns a job id to poll.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Id  header    string               false  "Tenant namespace"
// @Param        request      body      api.IngestRequest    true   "Sources and chunking parameters"
// @Success      202          {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400          {object}  api.ErrorResponse    "Invalid request"
// @Router       /ingest/jobs [post]
func PostIngestJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	req, ok := decodeIngest(w, r)
	if !ok {
		return
	}

	newJob := newJobData{
		id:      utils.GetNewUUID(),
		traceId: traceId(r.Context()),
		tenant:  tenantId(r.Context()),
		request: req,
	}
	if err := CreateNewJob(r.Context(), newJob); err != nil {
		logRH.Error("Could not queue job", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, newJob.id, "Could not queue job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// PostQueryHandler godoc
// @Summary      Query a collection
// @Description  Embeds the question with the provider the collection was indexed with and returns the top k chunks scoring at or above the threshold. An unknown collection returns an empty result with a message.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Id  header    string             false  "Tenant namespace"
// @Param        request      body      api.QueryRequest   true   "Question, k and threshold"
// @Success      200          {object}  api.QueryResponse  "Ranked results"
// @Failure      400          {object}  api.ErrorResponse  "Missing question or invalid k"
// @Router       /ingest/query [post]
func PostQueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	var body api.QueryRequest
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := adapter.ToAskRequest(body, tenantId(r.Context()), handlerInstance.defaults)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := handlerInstance.ragService.Ask(r.Context(), req)
	if err != nil && !rag.IsQueryError(err) {
		writeServiceError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(res))
}

// PostAnalyzeHandler godoc
// @Summary      Build the DocMap of a repository or path
// @Description  Reads the source without embedding and returns its file manifest.
// @Tags         Analyze
// @Accept       json
// @Produce      json
// @Param        request  body      api.AnalyzeRequest   true  "github_url or local_path"
// @Success      200      {object}  api.AnalyzeResponse  "DocMap"
// @Failure      400      {object}  api.ErrorResponse    "Neither or both sources given"
// @Router       /analyze [post]
func PostAnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	var body api.AnalyzeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	dm, err := handlerInstance.ragService.Analyze(r.Context(), adapter.ToAnalyzeRequest(body))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AnalyzeResponse{DocMap: dm})
}

// GetDocMapHandler godoc
// @Summary      Latest DocMap of a root
// @Tags         Analyze
// @Produce      json
// @Param        root  query     string                true  "Repository url or local root"
// @Success      200   {object}  api.AnalyzeResponse   "DocMap"
// @Failure      404   {object}  api.ErrorResponse     "No DocMap recorded for root"
// @Router       /docmap [get]
func GetDocMapHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	root := strings.TrimSpace(r.URL.Query().Get("root"))
	if root == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "root is required")
		return
	}
	dm, ok := handlerInstance.ragService.LatestDocMap(r.Context(), root)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, root, "DocMap not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AnalyzeResponse{DocMap: dm})
}

// GetStatsHandler godoc
// @Summary      Collection stats
// @Tags         Knowledge
// @Produce      json
// @Param        X-Tenant-Id  header    string             false  "Tenant namespace"
// @Param        collection   query     string             false  "Collection name"
// @Success      200          {object}  api.StatsResponse  "Stats"
// @Router       /knowledge/stats [get]
func GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	collection, err := adapter.CollectionName(r.URL.Query().Get("collection"), tenantId(r.Context()), handlerInstance.defaults)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	stats, err := handlerInstance.ragService.Stats(r.Context(), collection)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, stats)
}

// PostResetHandler godoc
// @Summary      Drop a collection
// @Tags         Knowledge
// @Produce      json
// @Param        X-Tenant-Id  header    string             false  "Tenant namespace"
// @Param        collection   query     string             false  "Collection name"
// @Success      200          {object}  api.ResetResponse  "Whether anything was dropped"
// @Router       /knowledge/reset [post]
func PostResetHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	collection, err := adapter.CollectionName(r.URL.Query().Get("collection"), tenantId(r.Context()), handlerInstance.defaults)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dropped, err := handlerInstance.ragService.Reset(r.Context(), collection)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ResetResponse{Collection: collection, Dropped: dropped})
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a queued ingest job, with its ingest response once complete.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string           true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}
	//use chi get the url id
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceId(r.Context()))

	logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
	if !isFound || result.Tenant != tenantId(r.Context()) {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}
