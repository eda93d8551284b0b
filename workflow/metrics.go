package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classification outcomes recorded by Metrics.
const (
	OutcomeConsensus = "consensus"
	OutcomeForced    = "forced"
	OutcomeFailed    = "failed"
)

// Metrics records workflow activity as Prometheus collectors under the
// "concord" namespace. A nil *Metrics records nothing.
type Metrics struct {
	classifications *prometheus.CounterVec
	roundsUsed      prometheus.Histogram
	reconciliations prometheus.Counter
	failures        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// NewMetrics creates and registers the workflow collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concord",
			Name:      "classifications_total",
			Help:      "Documents classified, by outcome (consensus, forced, failed).",
		}, []string{"outcome"}),
		roundsUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "concord",
			Name:      "rounds_used",
			Help:      "Rounds used per completed classification.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "concord",
			Name:      "reconciliations_total",
			Help:      "Reconciliation calls issued after a round without consensus.",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concord",
			Name:      "capability_failures_total",
			Help:      "Capability failures by stage.",
		}, []string{"stage"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concord",
			Name:      "capability_latency_seconds",
			Help:      "Capability call latency by stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
	}
}

func (m *Metrics) observeCall(stage Stage, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(string(stage)).Inc()
	}
}

func (m *Metrics) observeReconcile() {
	if m == nil {
		return
	}
	m.reconciliations.Inc()
}

func (m *Metrics) observeResult(d Decision, err error) {
	if m == nil {
		return
	}

	switch {
	case err != nil:
		m.classifications.WithLabelValues(OutcomeFailed).Inc()
		return
	case d.ConsensusReached:
		m.classifications.WithLabelValues(OutcomeConsensus).Inc()
	default:
		m.classifications.WithLabelValues(OutcomeForced).Inc()
	}
	m.roundsUsed.Observe(float64(d.RoundsUsed))
}
