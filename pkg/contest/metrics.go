package contest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts scoring work. All methods are safe on a nil *Metrics.
type Metrics struct {
	rounds        prometheus.Counter
	entries       prometheus.Counter
	unmatched     prometheus.Counter
	failures      prometheus.Counter
	roundDuration prometheus.Histogram
}

// NewMetrics creates the scoring metrics and registers them with reg.
// A nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rounds: f.NewCounter(prometheus.CounterOpts{
			Name: "poetry_rounds_scored_total",
			Help: "Total rounds scored",
		}),
		entries: f.NewCounter(prometheus.CounterOpts{
			Name: "poetry_entries_scored_total",
			Help: "Total entries scored",
		}),
		unmatched: f.NewCounter(prometheus.CounterOpts{
			Name: "poetry_entries_unmatched_total",
			Help: "Total entries that matched no category",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "poetry_rounds_failed_total",
			Help: "Total rounds rejected because of an invalid entry",
		}),
		roundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "poetry_round_duration_seconds",
			Help:    "Round scoring duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),
	}
}

func (m *Metrics) observeRound(entries, unmatched int, d time.Duration) {
	if m == nil {
		return
	}
	m.rounds.Inc()
	m.entries.Add(float64(entries))
	m.unmatched.Add(float64(unmatched))
	m.roundDuration.Observe(d.Seconds())
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
