package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	certmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/token"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

// DomainStore is the persistence capability the service needs.
type DomainStore interface {
	Create(ctx context.Context, d *models.DomainConfig) error
	FindByDomain(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error)
	FindByTenantAndDomain(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error)
	ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]*models.DomainConfig, error)
	ListActive(ctx context.Context) ([]*models.DomainConfig, error)
	Execute(ctx context.Context, name domain.DomainName, validate func(*models.DomainConfig) error, mutate func(*models.DomainConfig)) (*models.DomainConfig, error)
}

// Inspector is the subset of live-protocol probes verification needs.
type Inspector interface {
	ResolveTXT(ctx context.Context, domain string) ([]string, error)
	ResolveCNAME(ctx context.Context, domain string) (string, error)
	ProbeHTTP(ctx context.Context, url string) (int, time.Duration, error)
}

// CertificateManager starts certificate issuance for a verified domain.
type CertificateManager interface {
	Provision(ctx context.Context, name domain.DomainName) (*certmodels.SSLCertificate, error)
}

// EventPublisher delivers domain lifecycle events.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// TaskQueue runs work detached from the calling request.
type TaskQueue interface {
	Submit(name string, fn func(context.Context)) error
}

// Service orchestrates custom-domain registration, verification, and
// lifecycle administration.
type Service struct {
	domains      DomainStore
	inspector    Inspector
	baseDomain   domain.DomainName
	certificates CertificateManager
	tasks        TaskQueue
	publisher    EventPublisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCertificateManager enables automatic issuance after verification.
func WithCertificateManager(manager CertificateManager) Option {
	return func(s *Service) {
		s.certificates = manager
	}
}

// WithTaskQueue detaches certificate provisioning from the verifying
// request. Without it, provisioning runs inline.
func WithTaskQueue(queue TaskQueue) Option {
	return func(s *Service) {
		s.tasks = queue
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// New constructs the custom-domain service. baseDomain is the platform
// apex every tenant storefront lives under (CNAME targets are
// <platform_subdomain>.<baseDomain>).
func New(domains DomainStore, inspector Inspector, baseDomain domain.DomainName, opts ...Option) *Service {
	s := &Service{
		domains:    domains,
		inspector:  inspector,
		baseDomain: baseDomain,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries the merchant's registration request.
type RegisterParams struct {
	TenantID          domain.TenantID
	Domain            string
	PlatformSubdomain string
	SSLEnabled        bool
	SSLProvider       models.SSLProvider
	AutoRenew         bool
}

// Register validates and stores a new custom domain in
// pending_verification, returning the config together with the DNS setup
// instructions shown to the merchant.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.DomainConfig, *models.Instructions, error) {
	if params.TenantID.IsZero() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}

	name, err := domain.ParseDomainName(params.Domain)
	if err != nil {
		return nil, nil, err
	}
	if name == s.baseDomain || strings.HasSuffix(name.String(), "."+s.baseDomain.String()) {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "cannot register a domain under the platform apex")
	}

	target, err := domain.ParseDomainName(params.PlatformSubdomain + "." + s.baseDomain.String())
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "invalid platform subdomain")
	}

	verificationToken, err := token.Generate()
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification token")
	}

	now := requestcontext.Now(ctx)
	d, err := models.NewDomainConfig(
		domain.DomainID(uuid.New()),
		params.TenantID,
		name,
		strings.ToLower(strings.TrimSpace(params.PlatformSubdomain)),
		target,
		verificationToken,
		params.SSLEnabled,
		params.SSLProvider,
		params.AutoRenew,
		now,
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, nil, err
	}

	if err := s.domains.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "domain is already registered")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register domain")
	}

	s.logger.InfoContext(ctx, "domain registered",
		"domain", name.String(),
		"tenant_id", params.TenantID.String(),
		"ssl_enabled", params.SSLEnabled,
	)
	s.metrics.IncrementRegistered()
	s.emit(ctx, events.New(events.TypeDomainRegistered, d.TenantID, d.Domain.String()))

	return d, d.SetupInstructions(), nil
}

// Get returns a tenant's domain config.
func (s *Service) Get(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error) {
	d, err := s.domains.FindByTenantAndDomain(ctx, tenantID, name)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	return d, nil
}

// List returns every domain registered by a tenant.
func (s *Service) List(ctx context.Context, tenantID domain.TenantID) ([]*models.DomainConfig, error) {
	domains, err := s.domains.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return domains, nil
}

// Instructions returns the DNS setup payload for a tenant's domain.
func (s *Service) Instructions(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.Instructions, error) {
	d, err := s.domains.FindByTenantAndDomain(ctx, tenantID, name)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	if d.Status == models.DomainStatusReleased {
		return nil, dErrors.New(dErrors.CodeInvalidState, "domain has been released")
	}
	return d.SetupInstructions(), nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	// Event delivery is observability, not state; failures are logged by
	// the publisher and never bubble into the domain operation.
	_ = s.publisher.Emit(ctx, event)
}

func wrapDomainErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "domain not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "domain was modified concurrently")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "domain state does not permit this operation")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "domain store failure")
	}
}
