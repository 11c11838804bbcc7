// Package models holds the certificate context's domain model: records of
// issued certificates and their lifecycle.
package models

import (
	"time"

	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// RenewalLeadTime is how far before expiry a certificate is renewed.
const RenewalLeadTime = 30 * 24 * time.Hour

// CertificateStatus tracks a certificate record through its life. A record
// is created active, becomes superseded when a newer certificate is issued
// for the same domain, and becomes expired when its validity window lapses
// without renewal.
type CertificateStatus string

const (
	CertificateStatusActive     CertificateStatus = "active"
	CertificateStatusSuperseded CertificateStatus = "superseded"
	CertificateStatusExpired    CertificateStatus = "expired"
)

func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificateStatusActive, CertificateStatusSuperseded, CertificateStatusExpired:
		return true
	}
	return false
}

func (s CertificateStatus) String() string { return string(s) }

// SSLCertificate records one certificate issued for a custom domain.
//
// Invariants:
//   - ExpiresAt is strictly after IssuedAt.
//   - At most one record per domain is active; issuing a new certificate
//     supersedes the previous active record.
//
// The key material itself never passes through this model. Providers keep
// it in their own storage; the platform tracks issuance metadata only.
type SSLCertificate struct {
	ID        domain.CertificateID
	Domain    domain.DomainName
	Provider  customdomain.SSLProvider
	Status    CertificateStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSSLCertificate builds an active certificate record, enforcing
// construction invariants.
func NewSSLCertificate(id domain.CertificateID, name domain.DomainName, provider customdomain.SSLProvider, issuedAt, expiresAt, now time.Time) (*SSLCertificate, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate id is required")
	}
	if name.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate domain is required")
	}
	if !provider.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown certificate provider %q", provider)
	}
	if issuedAt.IsZero() || expiresAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate validity window is required")
	}
	if !expiresAt.After(issuedAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate must expire after issuance")
	}

	return &SSLCertificate{
		ID:        id,
		Domain:    name,
		Provider:  provider,
		Status:    CertificateStatusActive,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RenewAt is the instant renewal should fire for this certificate.
func (c *SSLCertificate) RenewAt() time.Time {
	return c.ExpiresAt.Add(-RenewalLeadTime)
}

// RenewalDue reports whether the renewal window has opened.
func (c *SSLCertificate) RenewalDue(now time.Time) bool {
	return !now.Before(c.RenewAt())
}

// Lapsed reports whether the certificate's validity window has passed.
func (c *SSLCertificate) Lapsed(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Supersede marks the record replaced by a newer certificate.
func (c *SSLCertificate) Supersede(now time.Time) {
	c.Status = CertificateStatusSuperseded
	c.UpdatedAt = now
}

// MarkExpired marks the record lapsed without renewal.
func (c *SSLCertificate) MarkExpired(now time.Time) {
	c.Status = CertificateStatusExpired
	c.UpdatedAt = now
}
