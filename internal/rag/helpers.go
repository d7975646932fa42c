package rag

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

// HTTPStatus maps a service error to the status code reported to callers and
// whether retrying the same call can succeed.
func HTTPStatus(err error) (int, bool) {
	switch {
	case err == nil:
		return http.StatusOK, false
	case knowledgeModel.IsConfigError(err):
		return http.StatusBadRequest, false
	case IsQueryError(err):
		return http.StatusOK, false
	case knowledgeModel.IsAuthError(err):
		return http.StatusBadGateway, false
	case knowledgeModel.IsRateLimitError(err):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, true
	default:
		return http.StatusInternalServerError, true
	}
}

// PublicMessage is the error text safe to return to a caller. Internal
// failures are logged in full and reported generically.
func PublicMessage(err error) string {
	code, _ := HTTPStatus(err)
	if code == http.StatusInternalServerError {
		return "Internal Server Error"
	}
	return err.Error()
}

func (s *service) jobError(job jobModel.Job, err error, log *logger_i.Logger) jobModel.Job {
	log.Error("Ingest job failed", "step", job.CurrentStep, "error", err)

	code, retry := HTTPStatus(err)
	job.Error = jobModel.JobError{
		Code:    code,
		Message: PublicMessage(err),
		Retry:   retry,
	}
	job.CurrentStep = jobModel.Error
	job.Status = jobModel.JobStatusError
	return job
}
