package handler

import (
	"time"

	certmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
)

// DomainResponse is the wire shape for a domain configuration. The
// verification token never appears here; merchants receive it only inside
// the instructions payload.
type DomainResponse struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	Domain            string     `json:"domain"`
	PlatformSubdomain string     `json:"platform_subdomain"`
	CNAMETarget       string     `json:"cname_target"`
	Status            string     `json:"status"`
	SSLEnabled        bool       `json:"ssl_enabled"`
	SSLProvider       string     `json:"ssl_provider"`
	AutoRenew         bool       `json:"auto_renew"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RegisterResponse pairs the stored config with the DNS setup payload shown
// to the merchant.
type RegisterResponse struct {
	Domain       *DomainResponse      `json:"domain"`
	Instructions *models.Instructions `json:"instructions"`
}

// ListResponse wraps the tenant's domains.
type ListResponse struct {
	Domains []*DomainResponse `json:"domains"`
}

// CertificateResponse is the wire shape for a certificate record.
type CertificateResponse struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CertificateHistoryResponse wraps a domain's issuance history, newest
// first.
type CertificateHistoryResponse struct {
	Certificates []*CertificateResponse `json:"certificates"`
}

// FromConfig converts a domain config to its HTTP response.
func FromConfig(d *models.DomainConfig) *DomainResponse {
	return &DomainResponse{
		ID:                d.ID.String(),
		TenantID:          d.TenantID.String(),
		Domain:            d.Domain.String(),
		PlatformSubdomain: d.PlatformSubdomain,
		CNAMETarget:       d.CNAMETarget.String(),
		Status:            string(d.Status),
		SSLEnabled:        d.SSLEnabled,
		SSLProvider:       string(d.SSLProvider),
		AutoRenew:         d.AutoRenew,
		VerifiedAt:        d.VerifiedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// FromConfigs converts a list of domain configs.
func FromConfigs(configs []*models.DomainConfig) []*DomainResponse {
	out := make([]*DomainResponse, 0, len(configs))
	for _, d := range configs {
		out = append(out, FromConfig(d))
	}
	return out
}

// FromCertificate converts a certificate record to its HTTP response.
func FromCertificate(cert *certmodels.SSLCertificate) *CertificateResponse {
	return &CertificateResponse{
		ID:        cert.ID.String(),
		Domain:    cert.Domain.String(),
		Provider:  string(cert.Provider),
		Status:    string(cert.Status),
		IssuedAt:  cert.IssuedAt,
		ExpiresAt: cert.ExpiresAt,
	}
}

// FromCertificates converts an issuance history.
func FromCertificates(certs []*certmodels.SSLCertificate) []*CertificateResponse {
	out := make([]*CertificateResponse, 0, len(certs))
	for _, cert := range certs {
		out = append(out, FromCertificate(cert))
	}
	return out
}
