package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/job"
	"github.com/akolanti/knowledgecore/internal/metrics"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
	defaults   config.IngestSettings
}

func InitJobHandler(jobService *job.Service, ragService rag.Service, defaults config.IngestSettings) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService, defaults: defaults}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

// CreateNewJob stores the queued job and hands it to the worker pool.
func CreateNewJob(ctx context.Context, newJob newJobData) error {
	log := logJH.With("traceId", newJob.traceId, "jobId", newJob.id)
	log.Info("To create new job")
	return handlerInstance.pushToJobChannel(ctx, newJob, log)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(ctx context.Context, newJob newJobData, log *logger_i.Logger) error {

	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		Tenant:      newJob.tenant,
		JobType:     jobModel.JobTypeIngest,
		JobPayload:  jobModel.JobPayload{Request: newJob.request},
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
	}

	//status is readable before a worker picks the job up
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		return err
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	log.Info("Created new job", "collection", newJob.request.Collection, "source", newJob.request.Source)

	//every ingest is an external-system-heavy job so every one signals the dispatcher
	//idle workers are retired so most of the time only 1 worker is running
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	metrics.StartDispatcherSignalCount()                         //metrics
	log.Debug("Worker count ", "requests", accurateCount)
	select {
	case h.service.DispatcherChannel <- true:
	default:
		//a signal is already pending
	}
	return nil
}

type newJobData struct {
	id      string
	traceId string
	tenant  string
	request knowledgeModel.IngestRequest
}
