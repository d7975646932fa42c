package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	jobmodel "github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctxTrace = context.WithValue(ctxTrace, config.TENANT_ID_KEY, job.Tenant)
	ctx, cancel := context.WithTimeout(ctxTrace, config.JobExecutionTimeout)
	defer cancel()
	log := logger.With("traceId", job.TraceId, "jobId", job.Id)
	log.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	job.CurrentStep = jobmodel.IngestStaging
	saveJobState(ctx, job)

	if job.JobType == jobmodel.JobTypeIngest {
		job = _ragService.ProcessJob(ctx, job)
	} else {
		log.Warn("Unknown job type", "type", job.JobType)
		job.Status = jobmodel.JobStatusError
		job.CurrentStep = jobmodel.Error
		job.Error = jobmodel.JobError{Code: 400, Message: "unknown job type"}
	}

	job.EndTime = time.Now()
	//the job context may have expired, the final state must still land
	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), config.StatsTimeout)
	defer cancelSave()
	saveJobState(saveCtx, job)
	log.Info("Job finished", "status", job.Status, "elapsed", time.Since(start))
}

func removeWorker(reason string) {
	atomic.AddInt64(&currentWorkerCount, -1)
	workerExit(reason)
}

// workerExit releases a worker whose count was already decremented.
func workerExit(reason string) {
	workerWaitGroup.Done()
	logger.Info("Removed worker ", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job state", "jobId", job.Id, "status", job.Status, "err", err)
	}
}
