package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/job"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService tracks which jobs were executed.
type MockRagService struct {
	rag.Service
	ProcessedCount int32
	OnProcessJob   func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessJob(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcessJob != nil {
		return m.OnProcessJob(ctx, j)
	}
	j.Status = jobModel.JobStatusComplete
	j.CurrentStep = jobModel.Complete
	return j
}

type MockJobStore struct {
	mu        sync.Mutex
	saved     []jobModel.Job
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func (m *MockJobStore) statuses(id string) []jobModel.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.JobStatus
	for _, j := range m.saved {
		if j.Id == id {
			out = append(out, j.Status)
		}
	}
	return out
}

func TestWorkerPool_Flow(t *testing.T) {
	// 1. Setup
	store := &MockJobStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store,
	}
	var seenTenant atomic.Value
	mockRag := &MockRagService{
		OnProcessJob: func(ctx context.Context, j jobModel.Job) jobModel.Job {
			seenTenant.Store(ctx.Value(config.TENANT_ID_KEY))
			j.Status = jobModel.JobStatusComplete
			j.CurrentStep = jobModel.Complete
			j.JobPayload.Result = &knowledgeModel.IngestResult{Indexed: []string{"inline:a.md"}}
			return j
		},
	}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, config.MinWorkerCount)

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		require.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Worker processes an ingest job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", Tenant: "acme", JobType: jobModel.JobTypeIngest}

		require.Eventually(t, func() bool {
			j, ok := store.GetJob(context.Background(), "test-1")
			return ok && j.Status == jobModel.JobStatusComplete
		}, time.Second, 10*time.Millisecond)

		assert.Equal(t, int32(1), atomic.LoadInt32(&mockRag.ProcessedCount))
		assert.Equal(t, []jobModel.JobStatus{jobModel.JobStatusRunning, jobModel.JobStatusComplete}, store.statuses("test-1"))
		assert.Equal(t, "acme", seenTenant.Load())

		final, _ := store.GetJob(context.Background(), "test-1")
		assert.False(t, final.EndTime.IsZero())
		require.NotNil(t, final.JobPayload.Result)
	})

	t.Run("Unknown job type fails without reaching the service", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-2", JobType: "Chat"}

		require.Eventually(t, func() bool {
			j, ok := store.GetJob(context.Background(), "test-2")
			return ok && j.Status == jobModel.JobStatusError
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&mockRag.ProcessedCount))
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
		assert.Equal(t, int64(0), atomic.LoadInt64(&currentWorkerCount))
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	idleTimeout = 20 * time.Millisecond
	t.Cleanup(func() {
		idleTimeout = config.IdleWorkerTimeout
		atomic.StoreInt64(&minWorkerCount, config.MinWorkerCount)
	})

	jobSvc := &job.Service{JobChannel: make(chan jobModel.Job)}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	createWorker()
	createWorker()
	createWorker()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 1
	}, time.Second, 10*time.Millisecond)

	// the floor worker stays
	time.Sleep(5 * idleTimeout)
	assert.Equal(t, int64(1), atomic.LoadInt64(&currentWorkerCount))

	close(stopChan)
	wg.Wait()
	assert.Equal(t, int64(0), atomic.LoadInt64(&currentWorkerCount))
}
