// Package provider contains the pluggable certificate issuers behind the
// lifecycle manager. A domain's configuration names which provider issues
// its certificates; the registry resolves that name to an implementation.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// IssuedCertificate is a provider's report of a successful issuance. The
// platform records the validity window; the key material stays with the
// provider's own storage.
type IssuedCertificate struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Provider issues and renews certificates for verified custom domains.
// Issuance is slow (tens of seconds against a real CA), so callers run it
// off the request path. Implementations must be safe for concurrent use.
type Provider interface {
	Issue(ctx context.Context, name domain.DomainName) (*IssuedCertificate, error)
	Renew(ctx context.Context, name domain.DomainName) (*IssuedCertificate, error)
}

// ProvisioningError reports a failed issuance attempt with enough context
// to decide on retry. The lifecycle manager moves the domain to a failed
// state when it sees one.
type ProvisioningError struct {
	Provider customdomain.SSLProvider
	Domain   domain.DomainName
	Reason   string
	Err      error
}

func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("provisioning certificate for %s via %s: %s", e.Domain, e.Provider, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Registry resolves a configured provider name to an implementation.
// Registration happens at startup; lookups are concurrent.
type Registry struct {
	mu        sync.RWMutex
	providers map[customdomain.SSLProvider]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[customdomain.SSLProvider]Provider)}
}

// Register installs p under the given name. A later registration for the
// same name replaces the earlier one.
func (r *Registry) Register(kind customdomain.SSLProvider, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[kind] = p
}

// Get returns the provider registered under kind. A domain configured with
// a provider that was never registered is an operator error, not a caller
// error.
func (r *Registry) Get(kind customdomain.SSLProvider) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[kind]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInternal, "no certificate provider registered for %q", kind)
	}
	return p, nil
}
