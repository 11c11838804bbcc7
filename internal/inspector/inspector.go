// Package inspector wraps the protocol-level probes (DNS lookups, HTTP
// reachability, TLS handshake inspection) behind one interface so the
// verification orchestrator, health monitor, and sweeper stay testable
// without touching the network.
package inspector

import (
	"context"
	"time"
)

//go:generate mockgen -source=inspector.go -destination=mocks/inspector_mock.go -package=mocks

// CertificateInfo carries the leaf certificate fields the platform reports
// on. The chain itself is never retained here.
type CertificateInfo struct {
	Subject   string
	Issuer    string
	DNSNames  []string
	NotBefore time.Time
	NotAfter  time.Time
}

// ExpiresWithin reports whether the certificate lapses before now+window.
func (c *CertificateInfo) ExpiresWithin(now time.Time, window time.Duration) bool {
	return c.NotAfter.Before(now.Add(window))
}

// Expired reports whether the certificate is already past NotAfter.
func (c *CertificateInfo) Expired(now time.Time) bool {
	return c.NotAfter.Before(now)
}

// Inspector is the live-protocol capability. Every call returns an error for
// probe failure rather than panicking, and honors ctx cancellation.
type Inspector interface {
	// ResolveTXT returns the TXT records published at domain.
	ResolveTXT(ctx context.Context, domain string) ([]string, error)
	// ResolveCNAME returns the canonical name domain points at, usually
	// fully qualified with a trailing dot.
	ResolveCNAME(ctx context.Context, domain string) (string, error)
	// ResolveAddrs returns the A/AAAA answers for domain.
	ResolveAddrs(ctx context.Context, domain string) ([]string, error)
	// ProbeHTTP issues a GET against url and reports status and latency.
	ProbeHTTP(ctx context.Context, url string) (int, time.Duration, error)
	// FetchCertificate handshakes domain:port and returns the leaf
	// certificate presented, whether or not it verifies.
	FetchCertificate(ctx context.Context, domain string, port int) (*CertificateInfo, error)
}
