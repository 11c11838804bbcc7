package handler

import (
	"strings"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /api/v1/domains.
type RegisterRequest struct {
	Domain            string `json:"domain"`
	TenantID          string `json:"tenant_id"`
	PlatformSubdomain string `json:"platform_subdomain"`
	SSLEnabled        bool   `json:"ssl_enabled"`
	SSLProvider       string `json:"ssl_provider"`
	AutoRenew         bool   `json:"auto_renew"`

	// Parsed values (populated by Validate)
	parsedTenantID domain.TenantID
}

// Validate checks presence and syntax of the registration fields. Domain
// syntax, apex collisions and provider validity stay with the service; the
// handler only rejects what can never reach it.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Domain = strings.TrimSpace(r.Domain)
	if r.Domain == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}

	r.TenantID = strings.TrimSpace(r.TenantID)
	if r.TenantID == "" {
		return dErrors.New(dErrors.CodeValidation, "tenant_id is required")
	}
	tenantID, err := domain.ParseTenantID(r.TenantID)
	if err != nil {
		return err
	}
	r.parsedTenantID = tenantID

	r.PlatformSubdomain = strings.TrimSpace(r.PlatformSubdomain)
	if r.PlatformSubdomain == "" {
		return dErrors.New(dErrors.CodeValidation, "platform_subdomain is required")
	}

	r.SSLProvider = strings.TrimSpace(r.SSLProvider)
	return nil
}

// ParsedTenantID returns the validated tenant ID.
func (r *RegisterRequest) ParsedTenantID() domain.TenantID {
	return r.parsedTenantID
}

// Provider returns the requested SSL provider as a domain type.
func (r *RegisterRequest) Provider() models.SSLProvider {
	return models.SSLProvider(r.SSLProvider)
}
