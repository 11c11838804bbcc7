package provider

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"

	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

// HostAuthorizer guards which hosts the ACME provider will request
// certificates for. Wire it to the domain store so only verified domains
// ever reach the certificate authority.
type HostAuthorizer func(ctx context.Context, host string) error

// ACME issues certificates through an ACME directory using autocert.
// Requesting the certificate for an SNI hello forces issuance; autocert
// persists the account key and issued material in its cache, so a restart
// does not re-issue valid certificates.
type ACME struct {
	manager *autocert.Manager
	cache   autocert.Cache
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

// ACMEOption configures the ACME provider.
type ACMEOption func(*ACME)

// WithACMELogger sets the logger for retry and renewal noise.
func WithACMELogger(logger *slog.Logger) ACMEOption {
	return func(a *ACME) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithACMERetries sets how many attempts a single issuance makes against
// transient CA failures.
func WithACMERetries(n int) ACMEOption {
	return func(a *ACME) {
		if n > 0 {
			a.retries = n
		}
	}
}

// WithACMEBackoff sets the initial retry backoff. Each retry doubles it.
func WithACMEBackoff(d time.Duration) ACMEOption {
	return func(a *ACME) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// NewACME builds the provider. email identifies the CA account. authorize
// may be nil, in which case every host is allowed; issuance is only ever
// triggered for domains the lifecycle manager has already vetted, so the
// policy is a second line of defense, not the first.
func NewACME(cache autocert.Cache, email string, authorize HostAuthorizer, opts ...ACMEOption) *ACME {
	a := &ACME{
		cache:   cache,
		logger:  slog.Default(),
		retries: 3,
		backoff: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}

	policy := func(ctx context.Context, host string) error {
		if authorize == nil {
			return nil
		}
		return authorize(ctx, host)
	}
	a.manager = &autocert.Manager{
		Cache:      cache,
		Prompt:     autocert.AcceptTOS,
		Email:      email,
		HostPolicy: policy,
	}
	return a
}

// HTTPHandler exposes the ACME HTTP-01 challenge responder. The edge
// router mounts it so challenges arriving on customer domains reach the
// in-flight authorization.
func (a *ACME) HTTPHandler(fallback http.Handler) http.Handler {
	return a.manager.HTTPHandler(fallback)
}

// Issue requests a certificate for name, retrying transient CA failures
// with doubling backoff. Blocking; may take tens of seconds.
func (a *ACME) Issue(ctx context.Context, name domain.DomainName) (*IssuedCertificate, error) {
	hello := &tls.ClientHelloInfo{ServerName: name.String()}

	var lastErr error
	backoff := a.backoff
	for attempt := 1; attempt <= a.retries; attempt++ {
		cert, err := a.manager.GetCertificate(hello)
		if err == nil {
			return issuedFromTLS(name, cert)
		}
		lastErr = err

		if attempt == a.retries || !retryableACMEError(err) {
			break
		}
		a.logger.WarnContext(ctx, "acme issuance attempt failed, retrying",
			"domain", name.String(),
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, &ProvisioningError{
				Provider: customdomain.SSLProviderACME,
				Domain:   name,
				Reason:   "issuance canceled",
				Err:      ctx.Err(),
			}
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return nil, &ProvisioningError{
		Provider: customdomain.SSLProviderACME,
		Domain:   name,
		Reason:   "certificate authority refused issuance",
		Err:      lastErr,
	}
}

// Renew evicts the cached certificate so autocert cannot satisfy the
// request from storage, then issues fresh.
func (a *ACME) Renew(ctx context.Context, name domain.DomainName) (*IssuedCertificate, error) {
	if err := a.cache.Delete(ctx, name.String()); err != nil && !errors.Is(err, autocert.ErrCacheMiss) && !os.IsNotExist(err) {
		return nil, &ProvisioningError{
			Provider: customdomain.SSLProviderACME,
			Domain:   name,
			Reason:   "could not evict cached certificate",
			Err:      err,
		}
	}
	return a.Issue(ctx, name)
}

func issuedFromTLS(name domain.DomainName, cert *tls.Certificate) (*IssuedCertificate, error) {
	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return nil, &ProvisioningError{
				Provider: customdomain.SSLProviderACME,
				Domain:   name,
				Reason:   "certificate authority returned an empty chain",
			}
		}
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, &ProvisioningError{
				Provider: customdomain.SSLProviderACME,
				Domain:   name,
				Reason:   "could not parse issued certificate",
				Err:      err,
			}
		}
		leaf = parsed
	}
	return &IssuedCertificate{IssuedAt: leaf.NotBefore, ExpiresAt: leaf.NotAfter}, nil
}

// retryableACMEError matches transient CA and network failures worth a
// second attempt. Everything else (authorization denials, CAA failures,
// malformed orders) fails fast.
func retryableACMEError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"network is unreachable",
		"no such host",
		"timeout",
		"rate limit",
		"429",
		"503",
		"temporary failure",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
