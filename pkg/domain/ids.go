// Package domain holds the identifier and value-object vocabulary shared by
// every context in this service. Typed UUIDs keep tenant, domain-config, and
// certificate identifiers from being swapped for one another at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

type (
	// TenantID identifies the merchant that owns a custom domain.
	TenantID uuid.UUID
	// DomainID identifies one DomainConfig row.
	DomainID uuid.UUID
	// CertificateID identifies one issued certificate record.
	CertificateID uuid.UUID
)

// parseUUID enforces the shared parsing invariant: IDs must be valid,
// non-empty, non-nil UUIDs. All Parse* helpers funnel through here so every
// ID type rejects the same inputs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil uuid")
	}
	return parsed, nil
}

// NewTenantID returns a fresh random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// ParseTenantID parses and validates a tenant ID at a trust boundary.
func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw, "tenant")
	return TenantID(parsed), err
}

func (x TenantID) String() string { return uuid.UUID(x).String() }
func (x TenantID) IsZero() bool   { return uuid.UUID(x) == uuid.Nil }

func (x TenantID) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*x = parsed
	return nil
}

// NewDomainID returns a fresh random domain-config ID.
func NewDomainID() DomainID { return DomainID(uuid.New()) }

// ParseDomainID parses and validates a domain-config ID at a trust boundary.
func ParseDomainID(raw string) (DomainID, error) {
	parsed, err := parseUUID(raw, "domain")
	return DomainID(parsed), err
}

func (x DomainID) String() string { return uuid.UUID(x).String() }
func (x DomainID) IsZero() bool   { return uuid.UUID(x) == uuid.Nil }

func (x DomainID) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *DomainID) UnmarshalText(b []byte) error {
	parsed, err := ParseDomainID(string(b))
	if err != nil {
		return err
	}
	*x = parsed
	return nil
}

// NewCertificateID returns a fresh random certificate ID.
func NewCertificateID() CertificateID { return CertificateID(uuid.New()) }

// ParseCertificateID parses and validates a certificate ID at a trust boundary.
func ParseCertificateID(raw string) (CertificateID, error) {
	parsed, err := parseUUID(raw, "certificate")
	return CertificateID(parsed), err
}

func (x CertificateID) String() string { return uuid.UUID(x).String() }
func (x CertificateID) IsZero() bool   { return uuid.UUID(x) == uuid.Nil }

func (x CertificateID) MarshalText() ([]byte, error) { return []byte(x.String()), nil }

func (x *CertificateID) UnmarshalText(b []byte) error {
	parsed, err := ParseCertificateID(string(b))
	if err != nil {
		return err
	}
	*x = parsed
	return nil
}
