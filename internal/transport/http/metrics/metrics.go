package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the HTTP transport.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance with all transport metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "convocommerce_http_request_duration_seconds",
			Help:    "HTTP request latency by matched route pattern",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route"}),
	}
}

// ObserveRequest records one served request. route is the matched pattern,
// never the raw path.
func (m *Metrics) ObserveRequest(route string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
	}
}
