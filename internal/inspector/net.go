package inspector

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// defaultProbeTimeout bounds each probe when the caller's context carries no
// earlier deadline.
const defaultProbeTimeout = 10 * time.Second

// NetInspector performs real DNS, HTTP, and TLS probes.
type NetInspector struct {
	resolver *net.Resolver
	client   *http.Client
	timeout  time.Duration
}

// NewNetInspector builds the production inspector. timeout <= 0 falls back
// to the 10s default.
func NewNetInspector(timeout time.Duration) *NetInspector {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &NetInspector{
		resolver: &net.Resolver{},
		client: &http.Client{
			// Probes are one-shot; keeping connections open to tenant
			// domains just holds sockets.
			Transport: &http.Transport{
				DisableKeepAlives:   true,
				TLSHandshakeTimeout: timeout,
			},
		},
		timeout: timeout,
	}
}

func (n *NetInspector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, n.timeout)
}

func (n *NetInspector) ResolveTXT(ctx context.Context, domain string) ([]string, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	records, err := n.resolver.LookupTXT(ctx, domain)
	if err != nil {
		return nil, classifyDNSError("TXT", domain, err)
	}
	return records, nil
}

func (n *NetInspector) ResolveCNAME(ctx context.Context, domain string) (string, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	cname, err := n.resolver.LookupCNAME(ctx, domain)
	if err != nil {
		return "", classifyDNSError("CNAME", domain, err)
	}
	return cname, nil
}

func (n *NetInspector) ResolveAddrs(ctx context.Context, domain string) ([]string, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	ips, err := n.resolver.LookupIPAddr(ctx, domain)
	if err != nil {
		return nil, classifyDNSError("A", domain, err)
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.IP.String())
	}
	return addrs, nil
}

func (n *NetInspector) ProbeHTTP(ctx context.Context, url string) (int, time.Duration, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build probe request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "convocommerce-domain-probe/1.0")

	start := time.Now()
	resp, err := n.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	return resp.StatusCode, latency, nil
}

func (n *NetInspector) FetchCertificate(ctx context.Context, domain string, port int) (*CertificateInfo, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	if port <= 0 {
		port = 443
	}
	addr := net.JoinHostPort(domain, strconv.Itoa(port))

	// The handshake is for inspection only: validity is judged from the
	// certificate fields, not from chain verification, so an expired or
	// mis-issued certificate can still be reported on.
	dialer := &tls.Dialer{
		Config: &tls.Config{
			ServerName:         domain,
			InsecureSkipVerify: true,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type for %s", addr)
	}

	peers := tlsConn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return nil, fmt.Errorf("no certificate presented by %s", addr)
	}

	leaf := peers[0]
	return &CertificateInfo{
		Subject:   leaf.Subject.CommonName,
		Issuer:    leaf.Issuer.CommonName,
		DNSNames:  leaf.DNSNames,
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
	}, nil
}

// classifyDNSError distinguishes a definitive NXDOMAIN answer from transient
// resolver trouble, so callers can word next steps accurately.
func classifyDNSError(recordType, domain string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return fmt.Errorf("no %s record found for %s: %w", recordType, domain, err)
		case dnsErr.IsTemporary || dnsErr.IsTimeout:
			return fmt.Errorf("temporary failure resolving %s record for %s: %w", recordType, domain, err)
		}
	}
	return fmt.Errorf("resolve %s record for %s: %w", recordType, domain, err)
}
