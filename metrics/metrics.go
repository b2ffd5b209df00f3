// Package metrics instruments benchmark passes with Prometheus metrics.
//
// Metrics are registered against an explicit Registerer so that tests
// and repeated harness invocations never collide on the default
// registry. The CLI writes the registry to a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reducebench"

// Metrics holds the per-strategy pass instrumentation.
type Metrics struct {
	// PassDuration measures the wall time of one scheduler pass.
	// Labels: strategy
	PassDuration *prometheus.HistogramVec

	// ChunksTotal counts evaluated chunks of successful passes.
	// Labels: strategy
	ChunksTotal *prometheus.CounterVec

	// CommitsTotal counts accumulator commits of successful passes.
	// Labels: strategy
	CommitsTotal *prometheus.CounterVec

	// PassesTotal counts passes by outcome.
	// Labels: strategy, status (success, error)
	PassesTotal *prometheus.CounterVec
}

// New creates and registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Wall time of one scheduler pass by strategy",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
			},
			[]string{"strategy"},
		),
		ChunksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Chunks evaluated by successful passes",
			},
			[]string{"strategy"},
		),
		CommitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Accumulator commits by successful passes",
			},
			[]string{"strategy"},
		),
		PassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Scheduler passes by strategy and outcome",
			},
			[]string{"strategy", "status"},
		),
	}
}

// ObservePass records a successful pass.
func (m *Metrics) ObservePass(
	strategy string,
	elapsed time.Duration,
	chunks, commits int64,
) {
	if m == nil {
		return
	}

	m.PassDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.ChunksTotal.WithLabelValues(strategy).Add(float64(chunks))
	m.CommitsTotal.WithLabelValues(strategy).Add(float64(commits))
	m.PassesTotal.WithLabelValues(strategy, "success").Inc()
}

// ObserveFailure records a pass aborted by an error.
func (m *Metrics) ObserveFailure(strategy string) {
	if m == nil {
		return
	}

	m.PassesTotal.WithLabelValues(strategy, "error").Inc()
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
