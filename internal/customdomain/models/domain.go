package models

import (
	"time"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// SSLProvider identifies the certificate backend for a domain.
type SSLProvider string

const (
	// SSLProviderACME issues certificates through an ACME directory
	// (Let's Encrypt in production).
	SSLProviderACME SSLProvider = "acme"
	// SSLProviderPlatformManaged delegates issuance to the platform's
	// managed-certificate API (CDN edge certificates).
	SSLProviderPlatformManaged SSLProvider = "platform_managed"
)

// Valid reports whether p names a known certificate backend.
func (p SSLProvider) Valid() bool {
	return p == SSLProviderACME || p == SSLProviderPlatformManaged
}

func (p SSLProvider) String() string {
	return string(p)
}

// DomainConfig is the aggregate root for a merchant's custom domain.
//
// Invariants:
//   - Domain is globally unique across all tenants (enforced by the store)
//   - VerificationToken is generated once at registration and never changes;
//     tokens are never reused across domains
//   - Status moves only along the allowedTransitions table
//   - CNAMETarget is fixed at registration (the tenant's platform subdomain
//     joined with the platform apex); verification compares against it
//   - CreatedAt is immutable after construction
//
// # Concurrent Writers
//
// The request-path verifier, the background sweep, and the renewal timers
// may all race to mutate the same domain. Correctness relies on every
// writer re-reading current state inside the store's Execute callback and
// aborting when the domain has moved to an administratively held state.
// Equivalent outcomes are commutative (two concurrent successful
// verifications both land on verified); conflicting outcomes are resolved
// by the transition table, never by lock ordering.
type DomainConfig struct {
	ID       domain.DomainID   `json:"id"`
	TenantID domain.TenantID   `json:"tenant_id"`
	Domain   domain.DomainName `json:"domain"`

	// PlatformSubdomain is the tenant's storefront label on the platform
	// apex ("acme" for acme.platform.io). CNAMETarget is the joined form
	// the merchant's CNAME record must point at.
	PlatformSubdomain string            `json:"platform_subdomain"`
	CNAMETarget       domain.DomainName `json:"cname_target"`

	Status            DomainStatus `json:"status"`
	VerificationToken string       `json:"-"`

	SSLEnabled  bool        `json:"ssl_enabled"`
	SSLProvider SSLProvider `json:"ssl_provider,omitempty"`
	AutoRenew   bool        `json:"auto_renew"`

	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Version is the optimistic-concurrency counter. The postgres store
	// checks it on every Execute write; callers retry once on conflict.
	Version int64 `json:"version"`
}

// NewDomainConfig validates registration input and assembles a domain in
// pending_verification. The verification token must come from
// token.Generate; the constructor only enforces its shape.
func NewDomainConfig(domainID domain.DomainID, tenantID domain.TenantID, name domain.DomainName, platformSubdomain string, cnameTarget domain.DomainName, verificationToken string, sslEnabled bool, sslProvider SSLProvider, autoRenew bool, now time.Time) (*DomainConfig, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "domain cannot be empty")
	}
	if platformSubdomain == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "platform subdomain cannot be empty")
	}
	if cnameTarget == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cname target cannot be empty")
	}
	if len(verificationToken) < 32 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification token must be at least 32 characters")
	}
	if sslEnabled && !sslProvider.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown ssl provider")
	}
	return &DomainConfig{
		ID:                domainID,
		TenantID:          tenantID,
		Domain:            name,
		PlatformSubdomain: platformSubdomain,
		CNAMETarget:       cnameTarget,
		Status:            DomainStatusPendingVerification,
		VerificationToken: verificationToken,
		SSLEnabled:        sslEnabled,
		SSLProvider:       sslProvider,
		AutoRenew:         autoRenew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ExpectedTXTRecord is the literal value the merchant must publish in a TXT
// record at the domain. The verifier looks for this exact string.
func (d *DomainConfig) ExpectedTXTRecord() string {
	return "convocommerce-verify=" + d.VerificationToken
}

// CanMarkVerified checks whether ownership verification may advance the
// domain. Already-verified domains are a caller-side no-op, not an error;
// this only rejects domains whose state forbids the transition outright.
// Use with ApplyVerification in Execute callbacks.
func (d *DomainConfig) CanMarkVerified() error {
	return d.Status.MustTransitionTo(DomainStatusVerified)
}

// ApplyVerification transitions the domain to verified and records when
// ownership was proven. Call CanMarkVerified first to validate.
func (d *DomainConfig) ApplyVerification(now time.Time) {
	d.Status = DomainStatusVerified
	d.VerifiedAt = &now
	d.UpdatedAt = now
}

// MarkVerified validates and applies verification in one call.
// Prefer CanMarkVerified + ApplyVerification for Execute callback pattern.
func (d *DomainConfig) MarkVerified(now time.Time) error {
	if err := d.CanMarkVerified(); err != nil {
		return err
	}
	d.ApplyVerification(now)
	return nil
}

// CanBeginIssuance checks whether certificate provisioning may start.
// Issuance is reachable from verified (first certificate), ssl_failed
// (retry), ssl_active (renewal) and expired (late renewal).
func (d *DomainConfig) CanBeginIssuance() error {
	if !d.SSLEnabled {
		return dErrors.New(dErrors.CodeInvalidState, "ssl is not enabled for this domain")
	}
	return d.Status.MustTransitionTo(DomainStatusSSLPending)
}

// ApplyIssuanceStart transitions the domain to ssl_pending.
// Call CanBeginIssuance first to validate.
func (d *DomainConfig) ApplyIssuanceStart(now time.Time) {
	d.Status = DomainStatusSSLPending
	d.UpdatedAt = now
}

// BeginIssuance validates and applies the issuance start in one call.
func (d *DomainConfig) BeginIssuance(now time.Time) error {
	if err := d.CanBeginIssuance(); err != nil {
		return err
	}
	d.ApplyIssuanceStart(now)
	return nil
}

// CanActivateCertificate checks the ssl_pending → ssl_active transition.
func (d *DomainConfig) CanActivateCertificate() error {
	return d.Status.MustTransitionTo(DomainStatusSSLActive)
}

// ApplyCertificateActivation transitions the domain to ssl_active.
// Call CanActivateCertificate first to validate.
func (d *DomainConfig) ApplyCertificateActivation(now time.Time) {
	d.Status = DomainStatusSSLActive
	d.UpdatedAt = now
}

// ActivateCertificate validates and applies activation in one call.
func (d *DomainConfig) ActivateCertificate(now time.Time) error {
	if err := d.CanActivateCertificate(); err != nil {
		return err
	}
	d.ApplyCertificateActivation(now)
	return nil
}

// CanFailIssuance checks the ssl_pending → ssl_failed transition.
func (d *DomainConfig) CanFailIssuance() error {
	return d.Status.MustTransitionTo(DomainStatusSSLFailed)
}

// ApplyIssuanceFailure transitions the domain to ssl_failed. The domain
// stays distinguishable from an unverified one: ownership was proven, the
// certificate backend failed.
func (d *DomainConfig) ApplyIssuanceFailure(now time.Time) {
	d.Status = DomainStatusSSLFailed
	d.UpdatedAt = now
}

// FailIssuance validates and applies the issuance failure in one call.
func (d *DomainConfig) FailIssuance(now time.Time) error {
	if err := d.CanFailIssuance(); err != nil {
		return err
	}
	d.ApplyIssuanceFailure(now)
	return nil
}

// CanExpire checks the ssl_active → expired transition.
func (d *DomainConfig) CanExpire() error {
	return d.Status.MustTransitionTo(DomainStatusExpired)
}

// ApplyExpiry transitions the domain to expired after its certificate
// lapsed without renewal.
func (d *DomainConfig) ApplyExpiry(now time.Time) {
	d.Status = DomainStatusExpired
	d.UpdatedAt = now
}

// Expire validates and applies expiry in one call.
func (d *DomainConfig) Expire(now time.Time) error {
	if err := d.CanExpire(); err != nil {
		return err
	}
	d.ApplyExpiry(now)
	return nil
}

// CanSuspend checks whether an operator may place the domain on hold.
func (d *DomainConfig) CanSuspend() error {
	return d.Status.MustTransitionTo(DomainStatusSuspended)
}

// ApplySuspension places the domain on administrative hold. Background
// writers abort when they observe this state.
func (d *DomainConfig) ApplySuspension(now time.Time) {
	d.Status = DomainStatusSuspended
	d.UpdatedAt = now
}

// Suspend validates and applies suspension in one call.
func (d *DomainConfig) Suspend(now time.Time) error {
	if err := d.CanSuspend(); err != nil {
		return err
	}
	d.ApplySuspension(now)
	return nil
}

// CanReinstate checks the suspended → pending_verification transition.
// Reinstatement deliberately re-enters verification rather than restoring
// the prior state: DNS may have changed while the domain was held.
func (d *DomainConfig) CanReinstate() error {
	if d.Status != DomainStatusSuspended {
		return d.Status.MustTransitionTo(DomainStatusPendingVerification)
	}
	return nil
}

// ApplyReinstatement returns the domain to pending_verification.
// Call CanReinstate first to validate.
func (d *DomainConfig) ApplyReinstatement(now time.Time) {
	d.Status = DomainStatusPendingVerification
	d.VerifiedAt = nil
	d.UpdatedAt = now
}

// Reinstate validates and applies reinstatement in one call.
func (d *DomainConfig) Reinstate(now time.Time) error {
	if err := d.CanReinstate(); err != nil {
		return err
	}
	d.ApplyReinstatement(now)
	return nil
}

// CanFail checks whether verification may be abandoned. Only domains still
// waiting on their first successful verification can be marked failed.
func (d *DomainConfig) CanFail() error {
	return d.Status.MustTransitionTo(DomainStatusFailed)
}

// ApplyFailure marks the domain's verification as abandoned.
func (d *DomainConfig) ApplyFailure(now time.Time) {
	d.Status = DomainStatusFailed
	d.UpdatedAt = now
}

// Fail validates and applies the failure in one call.
func (d *DomainConfig) Fail(now time.Time) error {
	if err := d.CanFail(); err != nil {
		return err
	}
	d.ApplyFailure(now)
	return nil
}

// CanRelease checks whether the domain may be released. Release replaces
// deletion and is reachable from every other state.
func (d *DomainConfig) CanRelease() error {
	return d.Status.MustTransitionTo(DomainStatusReleased)
}

// ApplyRelease moves the domain to its permanent terminal state. The row
// is retained for audit; the domain name itself becomes registrable again
// only through operator tooling.
func (d *DomainConfig) ApplyRelease(now time.Time) {
	d.Status = DomainStatusReleased
	d.UpdatedAt = now
}

// Release validates and applies the release in one call.
func (d *DomainConfig) Release(now time.Time) error {
	if err := d.CanRelease(); err != nil {
		return err
	}
	d.ApplyRelease(now)
	return nil
}
