package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

// validateContext rejects requests arriving before InitJobHandler or after
// the client went away.
func validateContext(w http.ResponseWriter, ctx context.Context) bool {
	if handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return false
	}
	if ctx.Err() != nil {
		logRH.Warn("context error", "traceId", traceId(ctx), "error", ctx.Err())
		return false
	}
	return true
}

func traceId(ctx context.Context) string {
	id, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return id
}

func tenantId(ctx context.Context) string {
	id, _ := ctx.Value(config.TENANT_ID_KEY).(string)
	return id
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeServiceError writes the error envelope for a failed service call.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, retry := rag.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logRH.Error("Request failed", "traceId", traceId(r.Context()), "path", r.URL.Path, "error", err)
	} else {
		logRH.Warn("Request rejected", "traceId", traceId(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJsonResponse(w, code, api.ErrorResponse{Code: code, Message: rag.PublicMessage(err), Retry: retry})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}(body)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "", "Request body too large")
			return false
		}
		logRH.Warn("Bad Request", "traceId", traceId(r.Context()), "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return false
	}
	return true
}

func decodeIngest(w http.ResponseWriter, r *http.Request) (knowledgeModel.IngestRequest, bool) {
	var body api.IngestRequest
	if !decodeBody(w, r, &body) {
		return knowledgeModel.IngestRequest{}, false
	}
	req, err := adapter.ToIngestRequest(body, tenantId(r.Context()), handlerInstance.defaults)
	if err != nil {
		writeServiceError(w, r, err)
		return knowledgeModel.IngestRequest{}, false
	}
	return req, true
}

func writeIngestResult(w http.ResponseWriter, r *http.Request, res knowledgeModel.IngestResult, err error) {
	if err != nil && res.Indexed == nil {
		writeServiceError(w, r, err)
		return
	}
	if err != nil {
		//fatal after partial progress: report what was written
		code, retry := rag.HTTPStatus(err)
		logRH.Error("Ingest stopped", "traceId", traceId(r.Context()), "error", err)
		out := adapter.ToIngestResponse(res)
		out.Error = &api.ErrorResponse{Code: code, Message: rag.PublicMessage(err), Retry: retry}
		writeJsonResponse(w, code, out)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToIngestResponse(res))
}
