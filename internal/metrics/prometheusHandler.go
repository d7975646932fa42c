package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing an ingest job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

var embeddingBatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "embedding_batches_total",
	Help: "Embedding batches sent to a provider, by outcome",
}, []string{"provider", "outcome"})

var ingestSources = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_sources_total",
	Help: "Sources processed by the ingest pipeline",
}, []string{"kind", "outcome"})

var ingestChunks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_chunks_total",
	Help: "Chunks handled by the ingest pipeline: embedded, skipped or pruned",
}, []string{"outcome"})

func ObserveEmbeddingBatch(provider, outcome string) {
	embeddingBatches.WithLabelValues(provider, outcome).Inc()
}

func ObserveIngestSource(kind, outcome string) {
	ingestSources.WithLabelValues(kind, outcome).Inc()
}

func AddIngestChunks(outcome string, n int) {
	if n > 0 {
		ingestChunks.WithLabelValues(outcome).Add(float64(n))
	}
}
