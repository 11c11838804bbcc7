// Package handler wires the custom-domain HTTP endpoints to the domain,
// certificate and health services. It stays a thin transport layer: request
// decoding, tenant extraction and response shaping, with every rule living
// in the services underneath.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	certmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/service"
	healthmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/httputil"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

// headerTenantID carries the caller's tenant identity. The query parameter
// tenant_id is accepted as a fallback for edges that cannot set headers.
const headerTenantID = "X-Tenant-ID"

// DomainService is the registration, verification and lifecycle surface
// the handler exposes.
type DomainService interface {
	Register(ctx context.Context, params service.RegisterParams) (*models.DomainConfig, *models.Instructions, error)
	Get(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error)
	List(ctx context.Context, tenantID domain.TenantID) ([]*models.DomainConfig, error)
	Instructions(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.Instructions, error)
	Verify(ctx context.Context, name domain.DomainName) (*models.VerificationResult, error)
	Release(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error)
	Suspend(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error)
	Reinstate(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error)
	MarkFailed(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error)
}

// CertificateService is the certificate surface exposed on the admin routes.
type CertificateService interface {
	Provision(ctx context.Context, name domain.DomainName) (*certmodels.SSLCertificate, error)
	Renew(ctx context.Context, name domain.DomainName) (*certmodels.SSLCertificate, error)
	ActiveCertificate(ctx context.Context, name domain.DomainName) (*certmodels.SSLCertificate, error)
	History(ctx context.Context, name domain.DomainName) ([]*certmodels.SSLCertificate, error)
}

// HealthService reports a domain's health snapshot.
type HealthService interface {
	CheckHealth(ctx context.Context, name domain.DomainName) *healthmodels.DomainHealth
}

// Handler wires custom-domain endpoints to the services.
type Handler struct {
	domains      DomainService
	certificates CertificateService
	health       HealthService
	logger       *slog.Logger
}

// New constructs the handler with its dependencies.
func New(domains DomainService, certificates CertificateService, health HealthService, logger *slog.Logger) *Handler {
	return &Handler{
		domains:      domains,
		certificates: certificates,
		health:       health,
		logger:       logger,
	}
}

// Register mounts the tenant-facing endpoints on the router. Paths are
// registered flat so the admin group can share the {domain} subtree with
// its own middleware stack.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/domains", h.HandleRegister)
	r.Get("/api/v1/domains", h.HandleList)
	r.Get("/api/v1/domains/{domain}", h.HandleGet)
	r.Delete("/api/v1/domains/{domain}", h.HandleRelease)
	r.Get("/api/v1/domains/{domain}/instructions", h.HandleInstructions)
	r.Post("/api/v1/domains/{domain}/verify", h.HandleVerify)
	r.Get("/api/v1/domains/{domain}/health", h.HandleHealth)
}

// RegisterAdmin mounts the operator endpoints. The caller is expected to
// gate this group behind admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/api/v1/domains/{domain}/suspend", h.HandleSuspend)
	r.Post("/api/v1/domains/{domain}/reinstate", h.HandleReinstate)
	r.Post("/api/v1/domains/{domain}/fail", h.HandleMarkFailed)
	r.Get("/api/v1/domains/{domain}/certificate", h.HandleActiveCertificate)
	r.Post("/api/v1/domains/{domain}/certificate", h.HandleProvisionCertificate)
	r.Post("/api/v1/domains/{domain}/certificate/renew", h.HandleRenewCertificate)
	r.Get("/api/v1/domains/{domain}/certificates", h.HandleCertificateHistory)
}

// HandleRegister handles POST /api/v1/domains.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cfg, instructions, err := h.domains.Register(ctx, service.RegisterParams{
		TenantID:          req.ParsedTenantID(),
		Domain:            req.Domain,
		PlatformSubdomain: req.PlatformSubdomain,
		SSLEnabled:        req.SSLEnabled,
		SSLProvider:       req.Provider(),
		AutoRenew:         req.AutoRenew,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "domain registration rejected",
			"request_id", requestID,
			"domain", req.Domain,
			"tenant_id", req.TenantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "custom domain registered",
		"request_id", requestID,
		"domain", cfg.Domain.String(),
		"tenant_id", cfg.TenantID.String(),
		"ssl_enabled", cfg.SSLEnabled,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Domain:       FromConfig(cfg),
		Instructions: instructions,
	})
}

// HandleList handles GET /api/v1/domains.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := tenantFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	configs, err := h.domains.List(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Domains: FromConfigs(configs)})
}

// HandleGet handles GET /api/v1/domains/{domain}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, name, err := tenantAndDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cfg, err := h.domains.Get(ctx, tenantID, name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

// HandleInstructions handles GET /api/v1/domains/{domain}/instructions.
// The payload shape is stable; merchants paste it into their DNS consoles.
func (h *Handler) HandleInstructions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, name, err := tenantAndDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	instructions, err := h.domains.Instructions(ctx, tenantID, name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instructions)
}

// HandleVerify handles POST /api/v1/domains/{domain}/verify. Verification
// is idempotent and tenant-neutral: re-running the checks never reveals
// anything beyond what public DNS already serves.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.domains.Verify(ctx, name)
	if err != nil {
		h.logger.WarnContext(ctx, "verification request failed",
			"request_id", requestID,
			"domain", name.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification requested",
		"request_id", requestID,
		"domain", name.String(),
		"verified", result.Verified,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleHealth handles GET /api/v1/domains/{domain}/health. The lookup is
// tenant-scoped so the platform never probes hosts it does not serve.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, name, err := tenantAndDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.domains.Get(ctx, tenantID, name); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.health.CheckHealth(ctx, name))
}

// HandleRelease handles DELETE /api/v1/domains/{domain}.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, name, err := tenantAndDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cfg, err := h.domains.Release(ctx, tenantID, name)
	if err != nil {
		h.logger.WarnContext(ctx, "domain release rejected",
			"request_id", requestID,
			"domain", name.String(),
			"tenant_id", tenantID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "custom domain released",
		"request_id", requestID,
		"domain", name.String(),
		"tenant_id", tenantID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

// HandleSuspend handles POST /api/v1/domains/{domain}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, "suspended", h.domains.Suspend)
}

// HandleReinstate handles POST /api/v1/domains/{domain}/reinstate.
func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, "reinstated", h.domains.Reinstate)
}

// HandleMarkFailed handles POST /api/v1/domains/{domain}/fail.
func (h *Handler) HandleMarkFailed(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, "marked failed", h.domains.MarkFailed)
}

// adminTransition runs one operator-initiated lifecycle change and logs it
// against the authenticated admin subject.
func (h *Handler) adminTransition(w http.ResponseWriter, r *http.Request, action string, op func(context.Context, domain.DomainName) (*models.DomainConfig, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cfg, err := op(ctx, name)
	if err != nil {
		h.logger.WarnContext(ctx, "admin domain action rejected",
			"request_id", requestID,
			"domain", name.String(),
			"action", action,
			"admin", requestcontext.AdminSubject(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin domain action applied",
		"request_id", requestID,
		"domain", name.String(),
		"action", action,
		"admin", requestcontext.AdminSubject(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

// HandleProvisionCertificate handles POST /api/v1/domains/{domain}/certificate.
func (h *Handler) HandleProvisionCertificate(w http.ResponseWriter, r *http.Request) {
	h.certificateAction(w, r, "provision", http.StatusCreated, h.certificates.Provision)
}

// HandleRenewCertificate handles POST /api/v1/domains/{domain}/certificate/renew.
func (h *Handler) HandleRenewCertificate(w http.ResponseWriter, r *http.Request) {
	h.certificateAction(w, r, "renew", http.StatusOK, h.certificates.Renew)
}

func (h *Handler) certificateAction(w http.ResponseWriter, r *http.Request, action string, successStatus int, op func(context.Context, domain.DomainName) (*certmodels.SSLCertificate, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := op(ctx, name)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate action failed",
			"request_id", requestID,
			"domain", name.String(),
			"action", action,
			"admin", requestcontext.AdminSubject(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate action completed",
		"request_id", requestID,
		"domain", name.String(),
		"action", action,
		"admin", requestcontext.AdminSubject(ctx),
		"expires_at", cert.ExpiresAt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, successStatus, FromCertificate(cert))
}

// HandleActiveCertificate handles GET /api/v1/domains/{domain}/certificate.
func (h *Handler) HandleActiveCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.certificates.ActiveCertificate(ctx, name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleCertificateHistory handles GET /api/v1/domains/{domain}/certificates.
func (h *Handler) HandleCertificateHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	history, err := h.certificates.History(ctx, name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CertificateHistoryResponse{Certificates: FromCertificates(history)})
}

func domainParam(r *http.Request) (domain.DomainName, error) {
	return domain.ParseDomainName(chi.URLParam(r, "domain"))
}

func tenantFromRequest(r *http.Request) (domain.TenantID, error) {
	raw := r.Header.Get(headerTenantID)
	if raw == "" {
		raw = r.URL.Query().Get("tenant_id")
	}
	if raw == "" {
		return domain.TenantID{}, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	return domain.ParseTenantID(raw)
}

func tenantAndDomain(r *http.Request) (domain.TenantID, domain.DomainName, error) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		return domain.TenantID{}, "", err
	}
	name, err := domainParam(r)
	if err != nil {
		return domain.TenantID{}, "", err
	}
	return tenantID, name, nil
}
