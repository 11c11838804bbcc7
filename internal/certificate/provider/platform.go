package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/circuit"
)

type issueRequest struct {
	Domain string `json:"domain"`
}

type issueResponse struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PlatformManaged issues certificates through the platform's internal
// certificate authority over HTTP. A consecutive-failure breaker fails
// issuance fast while the CA is down instead of stacking blocked workers
// behind a dead dependency; the sweep retries once it recovers.
type PlatformManaged struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// PlatformOption configures the platform-managed provider.
type PlatformOption func(*PlatformManaged)

// WithPlatformAPIKey sets the bearer token presented to the CA.
func WithPlatformAPIKey(key string) PlatformOption {
	return func(p *PlatformManaged) {
		p.apiKey = key
	}
}

// WithPlatformHTTPClient replaces the default 30s-timeout client.
func WithPlatformHTTPClient(client *http.Client) PlatformOption {
	return func(p *PlatformManaged) {
		if client != nil {
			p.client = client
		}
	}
}

// WithPlatformLogger sets the logger for breaker transitions.
func WithPlatformLogger(logger *slog.Logger) PlatformOption {
	return func(p *PlatformManaged) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPlatformBreaker replaces the default breaker (open after 5
// consecutive failures, close after 3 successes).
func WithPlatformBreaker(b *circuit.Breaker) PlatformOption {
	return func(p *PlatformManaged) {
		if b != nil {
			p.breaker = b
		}
	}
}

// NewPlatformManaged builds the provider. endpoint is the CA base URL
// without a trailing slash.
func NewPlatformManaged(endpoint string, opts ...PlatformOption) *PlatformManaged {
	p := &PlatformManaged{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		breaker:  circuit.New("platform-ca"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Issue requests a fresh certificate from the internal CA.
func (p *PlatformManaged) Issue(ctx context.Context, name domain.DomainName) (*IssuedCertificate, error) {
	if p.breaker.IsOpen() {
		return nil, &ProvisioningError{
			Provider: customdomain.SSLProviderPlatformManaged,
			Domain:   name,
			Reason:   "certificate authority circuit is open",
		}
	}

	body, err := json.Marshal(issueRequest{Domain: name.String()})
	if err != nil {
		return nil, fmt.Errorf("encode issuance request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/certificates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build issuance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.recordFailure(ctx)
		return nil, &ProvisioningError{
			Provider: customdomain.SSLProviderPlatformManaged,
			Domain:   name,
			Reason:   "certificate authority unreachable",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// A 4xx still proves the CA is up; only server-side failures
		// count against the breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			p.recordFailure(ctx)
		} else {
			p.recordSuccess(ctx)
		}
		perr := &ProvisioningError{
			Provider: customdomain.SSLProviderPlatformManaged,
			Domain:   name,
			Reason:   fmt.Sprintf("certificate authority returned status %d", resp.StatusCode),
		}
		if detail := strings.TrimSpace(string(snippet)); detail != "" {
			perr.Err = errors.New(detail)
		}
		return nil, perr
	}

	var out issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		p.recordFailure(ctx)
		return nil, &ProvisioningError{
			Provider: customdomain.SSLProviderPlatformManaged,
			Domain:   name,
			Reason:   "could not decode certificate authority response",
			Err:      err,
		}
	}
	if !out.ExpiresAt.After(out.IssuedAt) {
		p.recordSuccess(ctx)
		return nil, &ProvisioningError{
			Provider: customdomain.SSLProviderPlatformManaged,
			Domain:   name,
			Reason:   "certificate authority returned an invalid validity window",
		}
	}

	p.recordSuccess(ctx)
	return &IssuedCertificate{IssuedAt: out.IssuedAt, ExpiresAt: out.ExpiresAt}, nil
}

// Renew requests a replacement certificate. The internal CA mints fresh
// material on every call, so renewal and issuance are the same request.
func (p *PlatformManaged) Renew(ctx context.Context, name domain.DomainName) (*IssuedCertificate, error) {
	return p.Issue(ctx, name)
}

func (p *PlatformManaged) recordFailure(ctx context.Context) {
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.ErrorContext(ctx, "certificate authority circuit opened", "breaker", p.breaker.Name())
	}
}

func (p *PlatformManaged) recordSuccess(ctx context.Context) {
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "certificate authority circuit closed", "breaker", p.breaker.Name())
	}
}
