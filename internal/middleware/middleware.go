package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/knowledgecore/internal/handlers"
	"github.com/akolanti/knowledgecore/internal/metrics"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var GetHandler = Wrap(handlers.GetHandler)

var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var PostIngestFilesHandler = Wrap(handlers.PostIngestFilesHandler)
var PostIngestJobHandler = Wrap(handlers.PostIngestJobHandler)
var PostQueryHandler = Wrap(handlers.PostQueryHandler)
var PostAnalyzeHandler = Wrap(handlers.PostAnalyzeHandler)
var GetDocMapHandler = Wrap(handlers.GetDocMapHandler)
var GetStatsHandler = Wrap(handlers.GetStatsHandler)
var PostResetHandler = Wrap(handlers.PostResetHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// WrapHandler runs the same chain in front of a non-func handler such as the
// MCP endpoint.
func WrapHandler(next http.Handler) http.Handler {
	return Wrap(next.ServeHTTP)
}

// processRequest runs trace, auth and rate limiting in order and stops at
// the first failure.
func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = injectTenant(re)
	re.logger.Info("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	return rateLimiter(re)
}
