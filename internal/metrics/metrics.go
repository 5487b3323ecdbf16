package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsystem_jobs_enqueued_total",
		Help: "Total number of jobs enqueued",
	})

	JobsClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsystem_jobs_claimed_total",
		Help: "Total number of jobs claimed by workers",
	})

	JobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsystem_jobs_completed_total",
		Help: "Total number of jobs completed, including those with an error result",
	})

	JobsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsystem_jobs_failed_total",
		Help: "Total number of jobs whose executor returned an error",
	})

	JobsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsystem_jobs_cancelled_total",
		Help: "Total number of jobs removed by cancel",
	})

	JobProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobsystem_job_processing_duration_seconds",
		Help:    "Time spent inside the executor per job in seconds",
		Buckets: prometheus.DefBuckets,
	})

	Workers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobsystem_workers",
		Help: "Current number of registered workers",
	})

	BusyWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobsystem_busy_workers",
		Help: "Current number of workers holding a job",
	})

	PendingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobsystem_pending_jobs",
		Help: "Current number of pending jobs",
	})
)
