// Package service contains the certificate lifecycle manager: it drives a
// domain through issuance, renewal, and expiry against a pluggable
// certificate provider, keeping the domain's status and the certificate
// records consistent with each other.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/provider"
	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

const tracerName = "convocommerce/certificate"

// errDomainHeld marks an Execute validate abort because an administrator
// suspended or released the domain while issuance was in flight. The
// issuance result is discarded; the hold wins.
var errDomainHeld = errors.New("domain moved to an administratively held state")

// DomainStore is the slice of the domain store the manager needs to move
// domains through the certificate states.
type DomainStore interface {
	FindByDomain(ctx context.Context, name domain.DomainName) (*customdomain.DomainConfig, error)
	Execute(ctx context.Context, name domain.DomainName, validate func(*customdomain.DomainConfig) error, mutate func(*customdomain.DomainConfig)) (*customdomain.DomainConfig, error)
}

// CertificateStore persists issuance records.
type CertificateStore interface {
	Put(ctx context.Context, cert *models.SSLCertificate) error
	GetActive(ctx context.Context, name domain.DomainName) (*models.SSLCertificate, error)
	History(ctx context.Context, name domain.DomainName) ([]*models.SSLCertificate, error)
	ListActive(ctx context.Context) ([]*models.SSLCertificate, error)
	ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.SSLCertificate, error)
	MarkExpired(ctx context.Context, id domain.CertificateID, now time.Time) error
}

// ProviderSource resolves a domain's configured provider.
type ProviderSource interface {
	Get(kind customdomain.SSLProvider) (provider.Provider, error)
}

// Scheduler arms and disarms renewal timers.
type Scheduler interface {
	Schedule(name domain.DomainName, at time.Time)
	Cancel(name domain.DomainName)
}

// EventPublisher delivers certificate lifecycle events.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Manager owns every write to the certificate store and every
// certificate-related domain status transition.
type Manager struct {
	domains   DomainStore
	certs     CertificateStore
	providers ProviderSource
	scheduler Scheduler
	publisher EventPublisher
	renewLead time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerMetrics enables issuance metrics.
func WithManagerMetrics(met *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = met
	}
}

// WithScheduler enables automatic renewal scheduling after issuance.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithManagerEventPublisher enables certificate lifecycle events.
func WithManagerEventPublisher(p EventPublisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithRenewalLead overrides how far before expiry renewals fire.
func WithRenewalLead(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.renewLead = d
		}
	}
}

// New constructs the lifecycle manager.
func New(domains DomainStore, certs CertificateStore, providers ProviderSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		domains:   domains,
		certs:     certs,
		providers: providers,
		renewLead: models.RenewalLeadTime,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provision issues the first certificate for a verified domain and
// activates it. The domain moves through ssl_pending and lands on
// ssl_active, or on ssl_failed when the provider refuses.
func (m *Manager) Provision(ctx context.Context, name domain.DomainName) (*models.SSLCertificate, error) {
	return m.issue(ctx, name, false)
}

// Renew replaces the active certificate before it expires. The previous
// record is superseded, never deleted.
func (m *Manager) Renew(ctx context.Context, name domain.DomainName) (*models.SSLCertificate, error) {
	return m.issue(ctx, name, true)
}

func (m *Manager) issue(ctx context.Context, name domain.DomainName, renewal bool) (*models.SSLCertificate, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "certificate.issue")
	defer span.End()
	span.SetAttributes(
		attribute.String("domain", name.String()),
		attribute.Bool("renewal", renewal),
	)

	start := time.Now()

	d, err := m.domains.Execute(ctx, name,
		func(d *customdomain.DomainConfig) error {
			return d.CanBeginIssuance()
		},
		func(d *customdomain.DomainConfig) {
			d.ApplyIssuanceStart(requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, wrapIssuanceErr(err)
	}

	prov, err := m.providers.Get(d.SSLProvider)
	if err != nil {
		m.recordFailedIssuance(ctx, d, err)
		return nil, err
	}

	var issued *provider.IssuedCertificate
	if renewal {
		issued, err = prov.Renew(ctx, name)
	} else {
		issued, err = prov.Issue(ctx, name)
	}
	if err != nil {
		m.recordFailedIssuance(ctx, d, err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate issuance failed")
	}

	now := requestcontext.Now(ctx)
	cert, err := models.NewSSLCertificate(domain.NewCertificateID(), name, d.SSLProvider, issued.IssuedAt, issued.ExpiresAt, now)
	if err != nil {
		m.recordFailedIssuance(ctx, d, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "provider returned an unusable certificate")
	}
	if err := m.certs.Put(ctx, cert); err != nil {
		m.recordFailedIssuance(ctx, d, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not record issued certificate")
	}

	_, err = m.domains.Execute(ctx, name,
		func(d *customdomain.DomainConfig) error {
			if d.Status.AdministrativelyHeld() {
				return errDomainHeld
			}
			return d.CanActivateCertificate()
		},
		func(d *customdomain.DomainConfig) {
			d.ApplyCertificateActivation(requestcontext.Now(ctx))
		},
	)
	switch {
	case err == nil:
	case errors.Is(err, errDomainHeld):
		// The certificate stays recorded; the domain stays held. If the
		// hold is lifted the domain re-verifies and re-activates.
		m.logger.WarnContext(ctx, "certificate recorded but domain is held",
			"domain", name.String(),
		)
		return cert, nil
	default:
		return nil, wrapIssuanceErr(err)
	}

	m.metrics.IncrementIssued(d.SSLProvider.String(), renewal)
	m.metrics.ObserveIssuance(start)
	m.logger.InfoContext(ctx, "certificate issued",
		"domain", name.String(),
		"provider", d.SSLProvider.String(),
		"expires_at", cert.ExpiresAt,
		"renewal", renewal,
	)

	eventType := events.TypeCertificateIssued
	if renewal {
		eventType = events.TypeCertificateRenewed
	}
	m.emit(ctx, events.New(eventType, d.TenantID, name.String()).
		WithMetadata("provider", d.SSLProvider.String()).
		WithMetadata("expires_at", cert.ExpiresAt.Format(time.RFC3339)))

	if d.AutoRenew && m.scheduler != nil {
		m.scheduler.Schedule(name, m.renewAt(cert))
	}

	return cert, nil
}

// renewAt is the instant renewal fires for cert under this manager's lead.
func (m *Manager) renewAt(cert *models.SSLCertificate) time.Time {
	return cert.ExpiresAt.Add(-m.renewLead)
}

// recordFailedIssuance moves the domain to ssl_failed and publishes the
// failure. Called while the domain is ssl_pending; if an administrator
// held the domain in the meantime, the hold wins and the failure is only
// logged.
func (m *Manager) recordFailedIssuance(ctx context.Context, d *customdomain.DomainConfig, cause error) {
	m.metrics.IncrementFailure(d.SSLProvider.String())
	m.logger.ErrorContext(ctx, "certificate issuance failed",
		"domain", d.Domain.String(),
		"provider", d.SSLProvider.String(),
		"error", cause,
	)

	_, err := m.domains.Execute(ctx, d.Domain,
		func(current *customdomain.DomainConfig) error {
			if current.Status.AdministrativelyHeld() {
				return errDomainHeld
			}
			return current.CanFailIssuance()
		},
		func(current *customdomain.DomainConfig) {
			current.ApplyIssuanceFailure(requestcontext.Now(ctx))
		},
	)
	if err != nil && !errors.Is(err, errDomainHeld) {
		m.logger.ErrorContext(ctx, "could not record issuance failure",
			"domain", d.Domain.String(),
			"error", err,
		)
	}

	m.emit(ctx, events.New(events.TypeCertificateFailed, d.TenantID, d.Domain.String()).
		WithMetadata("provider", d.SSLProvider.String()).
		WithMetadata("reason", cause.Error()))
}

// ExpireLapsed marks every active certificate whose validity window has
// passed, moving the owning domains to expired. The sweep calls it each
// cycle; renewal normally fires long before, so hits here mean renewals
// have been failing. Returns how many certificates were expired.
func (m *Manager) ExpireLapsed(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	lapsed, err := m.certs.ListExpiring(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not list expiring certificates")
	}

	expired := 0
	for _, cert := range lapsed {
		if err := m.expireOne(ctx, cert, now); err != nil {
			m.logger.ErrorContext(ctx, "could not expire certificate",
				"domain", cert.Domain.String(),
				"certificate_id", cert.ID.String(),
				"error", err,
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (m *Manager) expireOne(ctx context.Context, cert *models.SSLCertificate, now time.Time) error {
	if err := m.certs.MarkExpired(ctx, cert.ID, now); err != nil {
		return err
	}
	if m.scheduler != nil {
		m.scheduler.Cancel(cert.Domain)
	}

	d, err := m.domains.Execute(ctx, cert.Domain,
		func(d *customdomain.DomainConfig) error {
			if d.Status.AdministrativelyHeld() {
				return errDomainHeld
			}
			return d.CanExpire()
		},
		func(d *customdomain.DomainConfig) {
			d.ApplyExpiry(now)
		},
	)
	if err != nil {
		// Held or already moved on; the certificate record is expired
		// either way.
		if errors.Is(err, errDomainHeld) || errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}

	m.metrics.IncrementExpired()
	m.logger.WarnContext(ctx, "certificate expired without renewal",
		"domain", cert.Domain.String(),
		"expired_at", cert.ExpiresAt,
	)
	m.emit(ctx, events.New(events.TypeCertificateExpired, d.TenantID, cert.Domain.String()).
		WithMetadata("expired_at", cert.ExpiresAt.Format(time.RFC3339)))
	return nil
}

// ScheduleRenewals re-arms renewal timers for every active certificate.
// Called once at startup, since timers do not survive a restart.
func (m *Manager) ScheduleRenewals(ctx context.Context) (int, error) {
	if m.scheduler == nil {
		return 0, nil
	}
	active, err := m.certs.ListActive(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not list active certificates")
	}

	scheduled := 0
	for _, cert := range active {
		d, err := m.domains.FindByDomain(ctx, cert.Domain)
		if err != nil {
			m.logger.WarnContext(ctx, "active certificate for unknown domain",
				"domain", cert.Domain.String(),
				"error", err,
			)
			continue
		}
		if !d.AutoRenew || d.Status.AdministrativelyHeld() {
			continue
		}
		m.scheduler.Schedule(cert.Domain, m.renewAt(cert))
		scheduled++
	}

	m.logger.InfoContext(ctx, "renewal timers restored", "count", scheduled)
	return scheduled, nil
}

// ActiveCertificate returns the domain's current active certificate.
func (m *Manager) ActiveCertificate(ctx context.Context, name domain.DomainName) (*models.SSLCertificate, error) {
	cert, err := m.certs.GetActive(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active certificate for domain")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
	}
	return cert, nil
}

// History returns every certificate issued for the domain, newest first.
func (m *Manager) History(ctx context.Context, name domain.DomainName) ([]*models.SSLCertificate, error) {
	history, err := m.certs.History(ctx, name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
	}
	return history, nil
}

func (m *Manager) emit(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	_ = m.publisher.Emit(ctx, event)
}

func wrapIssuanceErr(err error) error {
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
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "domain state does not permit certificate issuance")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "domain store failure")
	}
}
