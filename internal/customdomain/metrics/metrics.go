package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the custom-domain module.
type Metrics struct {
	// Registrations accepted
	DomainsRegistered prometheus.Counter

	// Verification attempts by outcome
	VerificationOutcome *prometheus.CounterVec

	// Overall verification latency (all three probes)
	VerificationDuration prometheus.Histogram

	// Individual probe failures by check name
	CheckFailures *prometheus.CounterVec

	// Status transitions taken
	StatusTransitions *prometheus.CounterVec
}

// New creates a new Metrics instance with all custom-domain metrics registered.
func New() *Metrics {
	return &Metrics{
		DomainsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocommerce_domains_registered_total",
			Help: "Total number of custom domains registered",
		}),

		VerificationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_domain_verifications_total",
			Help: "Total verification attempts by outcome",
		}, []string{"outcome"}), // outcome: "verified", "unverified"

		VerificationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "convocommerce_domain_verification_duration_seconds",
			Help:    "Duration of full domain verification including all DNS and HTTP probes",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_domain_check_failures_total",
			Help: "Total failed verification probes by check name",
		}, []string{"check"}), // check: "txt_record", "cname_record", "reachable"

		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocommerce_domain_status_transitions_total",
			Help: "Total domain status transitions by source and target state",
		}, []string{"from", "to"}),
	}
}

// IncrementRegistered records a successful domain registration.
func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.DomainsRegistered.Inc()
	}
}

// IncrementVerification records a verification attempt outcome.
func (m *Metrics) IncrementVerification(verified bool) {
	if m != nil {
		outcome := "unverified"
		if verified {
			outcome = "verified"
		}
		m.VerificationOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveVerification records the duration of a full verification pass.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerification(start time.Time) {
	if m != nil {
		m.VerificationDuration.Observe(time.Since(start).Seconds())
	}
}

// IncrementCheckFailure records a single failed probe.
func (m *Metrics) IncrementCheckFailure(check string) {
	if m != nil {
		m.CheckFailures.WithLabelValues(check).Inc()
	}
}

// IncrementTransition records a status transition.
func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(from, to).Inc()
	}
}
