package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate lifecycle module.
type Metrics struct {
	// Certificates issued, by provider and whether it was a renewal
	Issued *prometheus.CounterVec

	// Issuance failures by provider
	Failures *prometheus.CounterVec

	// End-to-end issuance latency including the provider round trip
	IssuanceDuration prometheus.Histogram

	// Certificates that lapsed without renewal
	Expirations prometheus.Counter

	// Renewal timers currently armed
	RenewalTimers prometheus.Gauge
}

// New creates a new Metrics instance with all certificate metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_certificates_issued_total",
			Help: "Total certificates issued by provider and kind",
		}, []string{"provider", "kind"}), // kind: "initial", "renewal"

		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_certificate_failures_total",
			Help: "Total failed certificate issuance attempts by provider",
		}, []string{"provider"}),

		IssuanceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "convocommerce_certificate_issuance_duration_seconds",
			Help:    "Duration of certificate issuance including the provider round trip",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),

		Expirations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocommerce_certificates_expired_total",
			Help: "Total certificates that lapsed without renewal",
		}),

		RenewalTimers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "convocommerce_certificate_renewal_timers",
			Help: "Renewal timers currently armed",
		}),
	}
}

// IncrementIssued records a successful issuance.
func (m *Metrics) IncrementIssued(provider string, renewal bool) {
	if m != nil {
		kind := "initial"
		if renewal {
			kind = "renewal"
		}
		m.Issued.WithLabelValues(provider, kind).Inc()
	}
}

// IncrementFailure records a failed issuance attempt.
func (m *Metrics) IncrementFailure(provider string) {
	if m != nil {
		m.Failures.WithLabelValues(provider).Inc()
	}
}

// ObserveIssuance records the duration of one issuance attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIssuance(start time.Time) {
	if m != nil {
		m.IssuanceDuration.Observe(time.Since(start).Seconds())
	}
}

// IncrementExpired records a certificate lapsing without renewal.
func (m *Metrics) IncrementExpired() {
	if m != nil {
		m.Expirations.Inc()
	}
}

// SetRenewalTimers records how many renewal timers are armed.
func (m *Metrics) SetRenewalTimers(n int) {
	if m != nil {
		m.RenewalTimers.Set(float64(n))
	}
}
