// Package health probes custom domains end to end (DNS, HTTPS, TLS) and
// reports a best-effort snapshot. Results are cached for a short TTL so
// dashboards and the request path never trigger probe storms.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health/cache"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/inspector"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

const (
	httpsPort = 443

	// expiryWarningWindow is how far ahead an approaching certificate
	// expiry is surfaced as an issue. An expiring-soon certificate is a
	// warning, not an outage.
	expiryWarningWindow = 30 * 24 * time.Hour
)

// Inspector is the subset of live-protocol probes the monitor needs.
type Inspector interface {
	ResolveAddrs(ctx context.Context, domain string) ([]string, error)
	ProbeHTTP(ctx context.Context, url string) (int, time.Duration, error)
	FetchCertificate(ctx context.Context, domain string, port int) (*inspector.CertificateInfo, error)
}

// Monitor serves health snapshots cache-first and collapses concurrent
// probes for the same domain into one network round.
type Monitor struct {
	inspector Inspector
	cache     cache.Cache
	group     singleflight.Group
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type MonitorOption func(*Monitor)

func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMonitorMetrics(metrics *metrics.Metrics) MonitorOption {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

func NewMonitor(insp Inspector, healthCache cache.Cache, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		inspector: insp,
		cache:     healthCache,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckHealth returns the domain's health snapshot, serving from cache when
// a recent one exists. It never fails: probe and cache errors degrade to a
// conservative snapshot with the problems listed in Issues.
func (m *Monitor) CheckHealth(ctx context.Context, name domain.DomainName) *models.DomainHealth {
	if snapshot, ok := m.cached(ctx, name); ok {
		m.metrics.IncrementCacheHit()
		return snapshot
	}
	return m.probeShared(ctx, name)
}

// Refresh probes the domain live and replaces whatever the cache held.
// The background sweep uses it to keep snapshots warm.
func (m *Monitor) Refresh(ctx context.Context, name domain.DomainName) *models.DomainHealth {
	return m.probeShared(ctx, name)
}

func (m *Monitor) cached(ctx context.Context, name domain.DomainName) (*models.DomainHealth, bool) {
	snapshot, ok, err := m.cache.Get(ctx, name)
	if err != nil {
		m.logger.WarnContext(ctx, "health cache read failed",
			"domain", name.String(),
			"error", err,
		)
		return nil, false
	}
	return snapshot, ok
}

// probeShared funnels concurrent misses for one domain through a single
// probe. Late arrivals share the leader's snapshot, including one produced
// under the leader's deadline.
func (m *Monitor) probeShared(ctx context.Context, name domain.DomainName) *models.DomainHealth {
	v, _, _ := m.group.Do(name.String(), func() (any, error) {
		return m.probe(ctx, name), nil
	})
	return v.(*models.DomainHealth).Clone()
}

// probe runs the composite check: DNS A/AAAA, then HTTPS reachability,
// then the TLS certificate. Each sub-check failure is recorded as an issue
// and never aborts the rest.
func (m *Monitor) probe(ctx context.Context, name domain.DomainName) *models.DomainHealth {
	start := time.Now()
	now := requestcontext.Now(ctx)
	health := &models.DomainHealth{
		Domain:      name.String(),
		LastChecked: now,
		Issues:      []string{},
	}

	addrs, err := m.inspector.ResolveAddrs(ctx, name.String())
	switch {
	case err != nil:
		health.AddIssue("DNS resolution failed: " + err.Error())
	case len(addrs) == 0:
		health.AddIssue("domain has no A or AAAA records")
	default:
		health.DNSResolves = true
	}

	httpOK := false
	status, latency, err := m.inspector.ProbeHTTP(ctx, "https://"+name.String())
	if err != nil {
		health.AddIssue("HTTPS request failed: " + err.Error())
	} else {
		health.HTTPStatus = status
		health.ResponseTimeMS = latency.Milliseconds()
		if status >= 500 {
			health.AddIssue(fmt.Sprintf("HTTPS returned server error status %d", status))
		} else {
			httpOK = true
		}
	}

	cert, err := m.inspector.FetchCertificate(ctx, name.String(), httpsPort)
	switch {
	case err != nil:
		health.AddIssue("TLS certificate check failed: " + err.Error())
	case cert.Expired(now):
		expiresAt := cert.NotAfter
		health.SSLExpiresAt = &expiresAt
		health.AddIssue("SSL certificate has expired")
	default:
		expiresAt := cert.NotAfter
		health.SSLExpiresAt = &expiresAt
		health.SSLValid = true
		if cert.ExpiresWithin(now, expiryWarningWindow) {
			health.AddIssue("SSL certificate expires within 30 days")
		}
	}

	health.IsHealthy = health.DNSResolves && httpOK && health.SSLValid

	m.metrics.ObserveProbe(start)
	m.metrics.IncrementProbe(health.IsHealthy)
	if !health.IsHealthy {
		m.logger.InfoContext(ctx, "domain health degraded",
			"domain", name.String(),
			"issues", health.Issues,
		)
	}

	if err := m.cache.Set(ctx, health); err != nil {
		m.logger.WarnContext(ctx, "health cache write failed",
			"domain", name.String(),
			"error", err,
		)
	}
	return health
}
