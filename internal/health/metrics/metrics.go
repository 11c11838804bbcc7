package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the domain health monitor.
type Metrics struct {
	// Checks served, split by cache hit vs live probe
	Lookups *prometheus.CounterVec

	// Probe outcomes
	Outcomes *prometheus.CounterVec

	// Full composite probe latency (DNS + HTTPS + TLS)
	ProbeDuration prometheus.Histogram
}

// New creates a new Metrics instance with all health-monitor metrics registered.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_health_lookups_total",
			Help: "Total health lookups by source",
		}, []string{"source"}), // source: "cache", "probe"

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_health_probes_total",
			Help: "Total live health probes by outcome",
		}, []string{"outcome"}), // outcome: "healthy", "unhealthy"

		ProbeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "convocommerce_health_probe_duration_seconds",
			Help:    "Duration of the composite health probe (DNS, HTTPS, TLS)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementCacheHit records a lookup served from cache.
func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.Lookups.WithLabelValues("cache").Inc()
	}
}

// IncrementProbe records a lookup that went to the network, with its outcome.
func (m *Metrics) IncrementProbe(healthy bool) {
	if m != nil {
		m.Lookups.WithLabelValues("probe").Inc()
		outcome := "unhealthy"
		if healthy {
			outcome = "healthy"
		}
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveProbe records the duration of a composite probe.
// Call with time.Now() at the start of the probe.
func (m *Metrics) ObserveProbe(start time.Time) {
	if m != nil {
		m.ProbeDuration.Observe(time.Since(start).Seconds())
	}
}
