package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the background sweep.
type Metrics struct {
	Passes       prometheus.Counter
	DomainsSwept prometheus.Counter
	DomainErrors prometheus.Counter
	PassDuration prometheus.Histogram
	CertsExpired prometheus.Counter
}

// New creates a new Metrics instance with all sweep metrics registered.
func New() *Metrics {
	return &Metrics{
		Passes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocommerce_sweep_passes_total",
			Help: "Total completed sweep passes",
		}),
		DomainsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocommerce_sweep_domains_total",
			Help: "Total domains visited by the sweep",
		}),
		DomainErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocommerce_sweep_domain_errors_total",
			Help: "Total per-domain sweep failures, including recovered panics",
		}),
		PassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "convocommerce_sweep_pass_duration_seconds",
			Help:    "Duration of a full sweep pass",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
		CertsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocommerce_sweep_certificates_expired_total",
			Help: "Total lapsed certificates detected during sweep passes",
		}),
	}
}

// IncrementPass records a completed pass.
func (m *Metrics) IncrementPass() {
	if m != nil {
		m.Passes.Inc()
	}
}

// IncrementSwept records one visited domain.
func (m *Metrics) IncrementSwept() {
	if m != nil {
		m.DomainsSwept.Inc()
	}
}

// IncrementError records a per-domain failure.
func (m *Metrics) IncrementError() {
	if m != nil {
		m.DomainErrors.Inc()
	}
}

// ObservePass records the duration of a pass.
// Call with time.Now() at the start of the pass.
func (m *Metrics) ObservePass(start time.Time) {
	if m != nil {
		m.PassDuration.Observe(time.Since(start).Seconds())
	}
}

// AddCertsExpired records lapsed certificates found in one pass.
func (m *Metrics) AddCertsExpired(n int) {
	if m != nil && n > 0 {
		m.CertsExpired.Add(float64(n))
	}
}
