// Package metrics exposes the proof server's Prometheus instrumentation:
// queue depth, proof duration, and error counts, replacing the teacher's
// hand-rolled collector with the ecosystem's standard client library.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles every metric the proof server records.
type Collector struct {
	QueueDepth     prometheus.Gauge
	JobsInProgress prometheus.Gauge
	ProofDuration  *prometheus.HistogramVec
	Errors         *prometheus.CounterVec
	JobsSubmitted  prometheus.Counter
}

// NewCollector builds and registers a Collector against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wormcore",
			Subsystem: "proofserver",
			Name:      "queue_depth",
			Help:      "Number of jobs currently queued, not yet in progress.",
		}),
		JobsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wormcore",
			Subsystem: "proofserver",
			Name:      "jobs_in_progress",
			Help:      "1 while the worker is actively proving a job, else 0.",
		}),
		ProofDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wormcore",
			Subsystem: "proofserver",
			Name:      "proof_duration_seconds",
			Help:      "Wall-clock time spent running the witness/proof subprocess pipeline.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"circuit"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wormcore",
			Subsystem: "proofserver",
			Name:      "errors_total",
			Help:      "Count of errors by kind.",
		}, []string{"kind"}),
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wormcore",
			Subsystem: "proofserver",
			Name:      "jobs_submitted_total",
			Help:      "Count of proof jobs accepted by the queue.",
		}),
	}
	reg.MustRegister(c.QueueDepth, c.JobsInProgress, c.ProofDuration, c.Errors, c.JobsSubmitted)
	return c
}

// ObserveProofDuration records how long a circuit's pipeline run took.
func (c *Collector) ObserveProofDuration(circuit string, d time.Duration) {
	c.ProofDuration.WithLabelValues(circuit).Observe(d.Seconds())
}

// RecordError increments the error counter for kind.
func (c *Collector) RecordError(kind string) {
	c.Errors.WithLabelValues(kind).Inc()
}
