package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsProcessedTotal, jobsEnqueuedTotal, jobsReclaimedTotal, jobValidationRetries, jobDurationSeconds)
}

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_jobs_processed_total",
		Help: "Total number of generation jobs processed, labeled by outcome.",
	},
	[]string{"outcome"}, // 'completed', 'retried', 'failed'
)

var jobsEnqueuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_jobs_enqueued_total",
		Help: "Total number of generation jobs enqueued.",
	},
)

var jobsReclaimedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_jobs_reclaimed_total",
		Help: "Total number of stale processing jobs returned to pending.",
	},
)

var jobValidationRetries = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_validation_retries_total",
		Help: "Count of corrective retries issued for truncated model output.",
	},
)

var jobDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "generation_job_duration_seconds",
		Help:    "Wall time of one job processing attempt.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300},
	},
)

func IncJobProcessed(outcome string) { jobsProcessedTotal.WithLabelValues(norm(outcome)).Inc() }
func IncJobEnqueued()                { jobsEnqueuedTotal.Inc() }
func AddJobsReclaimed(n int)         { jobsReclaimedTotal.Add(float64(n)) }
func IncValidationRetry()            { jobValidationRetries.Inc() }
func ObserveJobDuration(sec float64) { jobDurationSeconds.Observe(sec) }
