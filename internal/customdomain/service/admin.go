package service

import (
	"context"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

// Suspend places a domain on administrative hold. Background writers abort
// when they observe the held state, so suspension takes effect immediately
// even with verifications in flight.
//
// Uses the Execute callback pattern for atomic validate-then-mutate.
func (s *Service) Suspend(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error) {
	now := requestcontext.Now(ctx)
	previous := models.DomainStatus("")
	updated, err := s.domains.Execute(ctx, name,
		func(d *models.DomainConfig) error {
			previous = d.Status
			return d.CanSuspend()
		},
		func(d *models.DomainConfig) {
			d.ApplySuspension(now)
		},
	)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	s.metrics.IncrementTransition(previous.String(), models.DomainStatusSuspended.String())
	s.logger.InfoContext(ctx, "domain suspended",
		"domain", name.String(),
		"previous_status", previous.String(),
		"admin_subject", requestcontext.AdminSubject(ctx),
	)
	s.emit(ctx, events.New(events.TypeDomainSuspended, updated.TenantID, updated.Domain.String()).
		WithMetadata("previous_status", previous.String()))

	return updated, nil
}

// Reinstate lifts a suspension. The domain re-enters verification instead
// of restoring its prior state: DNS may have changed while it was held.
func (s *Service) Reinstate(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error) {
	now := requestcontext.Now(ctx)
	updated, err := s.domains.Execute(ctx, name,
		func(d *models.DomainConfig) error {
			return d.CanReinstate()
		},
		func(d *models.DomainConfig) {
			d.ApplyReinstatement(now)
		},
	)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	s.metrics.IncrementTransition(models.DomainStatusSuspended.String(), models.DomainStatusPendingVerification.String())
	s.logger.InfoContext(ctx, "domain reinstated",
		"domain", name.String(),
		"admin_subject", requestcontext.AdminSubject(ctx),
	)
	s.emit(ctx, events.New(events.TypeDomainReinstated, updated.TenantID, updated.Domain.String()))

	return updated, nil
}

// MarkFailed abandons verification for a domain that will never complete
// it. Only pending domains can be abandoned; proven domains keep their
// state.
func (s *Service) MarkFailed(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error) {
	now := requestcontext.Now(ctx)
	updated, err := s.domains.Execute(ctx, name,
		func(d *models.DomainConfig) error {
			return d.CanFail()
		},
		func(d *models.DomainConfig) {
			d.ApplyFailure(now)
		},
	)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	s.metrics.IncrementTransition(models.DomainStatusPendingVerification.String(), models.DomainStatusFailed.String())
	s.logger.InfoContext(ctx, "domain verification abandoned",
		"domain", name.String(),
		"admin_subject", requestcontext.AdminSubject(ctx),
	)
	s.emit(ctx, events.New(events.TypeDomainFailed, updated.TenantID, updated.Domain.String()))

	return updated, nil
}

// Release removes a domain from service permanently. The row is kept in
// its terminal state instead of being deleted so storefront references
// never dangle. Tenant-scoped: a tenant can only release its own domains.
func (s *Service) Release(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error) {
	existing, err := s.domains.FindByTenantAndDomain(ctx, tenantID, name)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	previous := models.DomainStatus("")
	updated, err := s.domains.Execute(ctx, name,
		func(d *models.DomainConfig) error {
			if d.TenantID != tenantID {
				return sentinel.ErrNotFound
			}
			if d.Status == models.DomainStatusReleased {
				return dErrors.New(dErrors.CodeConflict, "domain is already released")
			}
			previous = d.Status
			return d.CanRelease()
		},
		func(d *models.DomainConfig) {
			d.ApplyRelease(requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, wrapDomainErr(err)
	}

	s.metrics.IncrementTransition(previous.String(), models.DomainStatusReleased.String())
	s.logger.InfoContext(ctx, "domain released",
		"domain", name.String(),
		"tenant_id", existing.TenantID.String(),
	)
	s.emit(ctx, events.New(events.TypeDomainReleased, updated.TenantID, updated.Domain.String()))

	return updated, nil
}
