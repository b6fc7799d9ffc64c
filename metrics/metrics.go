package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "auction"

var (
	auctionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "created_total",
			Help:      "Count of auction posts promoted to threads.",
		},
	)
	ingestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "ingest_failures_total",
			Help:      "Count of promotions aborted, by step.",
		},
		[]string{"step"},
	)
	repliesTracked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "replies_tracked_total",
			Help:      "Count of replies registered with their own expiry timer.",
		},
	)
	deletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "deletions_total",
			Help:      "Count of platform deletions issued by the engine, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	sweepErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "sweep_errors_total",
			Help:      "Count of guild sweeps that ended with at least one error.",
		},
	)
	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a full reaper pass over every guild.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		},
	)
)

var registerMetrics sync.Once

// Register all metrics with the default registry.
func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(auctionsCreated)
		prometheus.MustRegister(ingestFailures)
		prometheus.MustRegister(repliesTracked)
		prometheus.MustRegister(deletions)
		prometheus.MustRegister(sweepErrors)
		prometheus.MustRegister(sweepDuration)
	})
}

// RecordAuctionCreated counts a successful promotion.
func RecordAuctionCreated() {
	auctionsCreated.Inc()
}

// RecordIngestFailure counts a promotion aborted at step.
func RecordIngestFailure(step string) {
	ingestFailures.WithLabelValues(step).Inc()
}

// RecordReplyTracked counts a newly tracked reply.
func RecordReplyTracked() {
	repliesTracked.Inc()
}

// RecordDeletion counts a deletion of kind ("reply", "post", "thread") with
// outcome ("deleted", "not_found", "forbidden", "error").
func RecordDeletion(kind, outcome string) {
	deletions.WithLabelValues(kind, outcome).Inc()
}

// RecordSweepError counts a guild sweep that failed.
func RecordSweepError() {
	sweepErrors.Inc()
}

// RecordSweepDuration observes how long a pass took.
func RecordSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}
