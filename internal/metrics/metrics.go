package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/forgespace/notify/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	JobsEnqueued    *prometheus.CounterVec
	JobsCompleted   *prometheus.CounterVec
	JobsRetried     *prometheus.CounterVec
	JobsFailed      *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	ProcessorRuns   *prometheus.CounterVec
	JobsByStatus    *prometheus.GaugeVec
	LastBatchSize   prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_enqueued_total",
			Help: "Total number of notification jobs added to the queue.",
		}, []string{"type"}),

		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_completed_total",
			Help: "Total number of notification jobs delivered successfully.",
		}, []string{"type"}),

		JobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_retried_total",
			Help: "Total number of failed attempts that were rescheduled.",
		}, []string{"type"}),

		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_jobs_failed_total",
			Help: "Total number of notification jobs that exhausted their attempts.",
		}, []string{"type"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_dispatch_seconds",
			Help:    "Time spent rendering and sending one notification.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),

		ProcessorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_processor_runs_total",
			Help: "Processor invocations by result (ok, error, skipped).",
		}, []string{"result"}),

		JobsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "notification_jobs",
			Help: "Current number of notification jobs per status.",
		}, []string{"status"}),

		LastBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_processor_last_batch_size",
			Help: "Number of due jobs selected by the most recent processor run.",
		}),
	}

	reg.MustRegister(
		m.JobsEnqueued,
		m.JobsCompleted,
		m.JobsRetried,
		m.JobsFailed,
		m.DispatchLatency,
		m.ProcessorRuns,
		m.JobsByStatus,
		m.LastBatchSize,
	)

	return m
}

// ObserveEnqueued counts one accepted job. Matches queue.Queue's OnEnqueued hook.
func (m *Metrics) ObserveEnqueued(t domain.JobType) {
	m.JobsEnqueued.WithLabelValues(string(t)).Inc()
}

// ObserveOutcome records the result of one dispatch attempt.
func (m *Metrics) ObserveOutcome(t domain.JobType, next domain.Status, latency time.Duration) {
	m.DispatchLatency.WithLabelValues(string(t)).Observe(latency.Seconds())
	switch next {
	case domain.StatusCompleted:
		m.JobsCompleted.WithLabelValues(string(t)).Inc()
	case domain.StatusPending:
		m.JobsRetried.WithLabelValues(string(t)).Inc()
	case domain.StatusFailed:
		m.JobsFailed.WithLabelValues(string(t)).Inc()
	}
}

// ObserveRun records one processor invocation. The batch gauge only moves
// on runs that actually selected jobs from the table.
func (m *Metrics) ObserveRun(result string, batchSize int) {
	m.ProcessorRuns.WithLabelValues(result).Inc()
	if result == "ok" {
		m.LastBatchSize.Set(float64(batchSize))
	}
}

// SetStatusCounts publishes a status snapshot.
func (m *Metrics) SetStatusCounts(c domain.StatusCounts) {
	m.JobsByStatus.WithLabelValues(string(domain.StatusPending)).Set(float64(c.Pending))
	m.JobsByStatus.WithLabelValues(string(domain.StatusProcessing)).Set(float64(c.Processing))
	m.JobsByStatus.WithLabelValues(string(domain.StatusCompleted)).Set(float64(c.Completed))
	m.JobsByStatus.WithLabelValues(string(domain.StatusFailed)).Set(float64(c.Failed))
}
