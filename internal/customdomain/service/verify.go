package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

const tracerName = "convocommerce/customdomain"

// Markers for Execute validate callbacks: both mean "leave the record
// alone", but only errAlreadyVerified is a success for the caller.
var (
	errAlreadyVerified = errors.New("domain already verified")
	errHeldConcurrent  = errors.New("domain moved to an administratively held state")
)

// Verify runs the three ownership checks and advances the domain to
// verified when all pass. It returns an error only for domains that cannot
// be verified at all (unknown, held, abandoned); probe failures are folded
// into the result so request-path and sweep callers can log-and-continue
// uniformly.
//
// Re-verifying an already-verified domain is a no-op: the checks run and
// the result is returned, but the status never regresses.
func (s *Service) Verify(ctx context.Context, name domain.DomainName) (*models.VerificationResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "customdomain.verify")
	defer span.End()
	span.SetAttributes(attribute.String("domain", name.String()))

	start := time.Now()

	d, err := s.domains.FindByDomain(ctx, name)
	if err != nil {
		return nil, wrapDomainErr(err)
	}
	if d.VerificationToken == "" {
		return nil, dErrors.New(dErrors.CodeInvalidState, "domain has no verification token")
	}
	if !d.Status.VerificationEligible() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "domain in status "+d.Status.String()+" cannot be verified")
	}

	txtOK, cnameOK, reachable := s.runChecks(ctx, d)

	now := requestcontext.Now(ctx)
	result := models.NewVerificationResult(d, txtOK, cnameOK, reachable, now)

	s.metrics.ObserveVerification(start)
	s.metrics.IncrementVerification(result.Verified)
	span.SetAttributes(attribute.Bool("verified", result.Verified))

	if !result.Verified {
		for check, passed := range result.Checks {
			if !passed {
				s.metrics.IncrementCheckFailure(check)
			}
		}
		s.logger.InfoContext(ctx, "domain verification incomplete",
			"domain", name.String(),
			"txt_record", txtOK,
			"cname_record", cnameOK,
			"reachable", reachable,
		)
		return result, nil
	}

	updated, err := s.domains.Execute(ctx, name,
		func(cur *models.DomainConfig) error {
			// Re-read discipline: an operator may have held the domain
			// between our read and this locked write.
			if cur.Status.AdministrativelyHeld() {
				return errHeldConcurrent
			}
			if cur.Status.Verified() {
				return errAlreadyVerified
			}
			return cur.CanMarkVerified()
		},
		func(cur *models.DomainConfig) {
			cur.ApplyVerification(now)
		},
	)
	switch {
	case err == nil:
		s.metrics.IncrementTransition(models.DomainStatusPendingVerification.String(), models.DomainStatusVerified.String())
		s.logger.InfoContext(ctx, "domain verified",
			"domain", name.String(),
			"tenant_id", updated.TenantID.String(),
		)
		s.emit(ctx, events.New(events.TypeDomainVerified, updated.TenantID, updated.Domain.String()))
		if updated.SSLEnabled {
			s.enqueueProvisioning(ctx, updated.Domain)
		}
	case errors.Is(err, errAlreadyVerified):
		// Idempotent success; nothing to apply.
	case errors.Is(err, errHeldConcurrent):
		s.logger.WarnContext(ctx, "verification result discarded, domain is held",
			"domain", name.String(),
		)
	default:
		return nil, wrapDomainErr(err)
	}

	return result, nil
}

// runChecks executes the three probes concurrently. Probe errors are
// logged and recorded as failed checks, never propagated.
func (s *Service) runChecks(ctx context.Context, d *models.DomainConfig) (txtOK, cnameOK, reachable bool) {
	var g errgroup.Group
	g.Go(func() error {
		txtOK = s.checkTXT(ctx, d)
		return nil
	})
	g.Go(func() error {
		cnameOK = s.checkCNAME(ctx, d)
		return nil
	})
	g.Go(func() error {
		reachable = s.checkReachable(ctx, d)
		return nil
	})
	_ = g.Wait()
	return txtOK, cnameOK, reachable
}

func (s *Service) checkTXT(ctx context.Context, d *models.DomainConfig) bool {
	records, err := s.inspector.ResolveTXT(ctx, d.Domain.String())
	if err != nil {
		s.logger.DebugContext(ctx, "txt lookup failed", "domain", d.Domain.String(), "error", err)
		return false
	}
	expected := d.ExpectedTXTRecord()
	for _, record := range records {
		if strings.Contains(record, expected) {
			return true
		}
	}
	return false
}

func (s *Service) checkCNAME(ctx context.Context, d *models.DomainConfig) bool {
	target, err := s.inspector.ResolveCNAME(ctx, d.Domain.String())
	if err != nil {
		s.logger.DebugContext(ctx, "cname lookup failed", "domain", d.Domain.String(), "error", err)
		return false
	}
	return domain.NormalizeDNSTarget(target) == domain.NormalizeDNSTarget(d.CNAMETarget.String())
}

// checkReachable probes plain HTTP: the domain has no certificate yet at
// verification time. Anything below 500 counts, content does not matter.
func (s *Service) checkReachable(ctx context.Context, d *models.DomainConfig) bool {
	status, _, err := s.inspector.ProbeHTTP(ctx, "http://"+d.Domain.String())
	if err != nil {
		s.logger.DebugContext(ctx, "reachability probe failed", "domain", d.Domain.String(), "error", err)
		return false
	}
	return status < 500
}

// enqueueProvisioning hands the newly verified domain to the certificate
// manager on the task pool. Without a pool it runs inline; a full queue is
// logged and left for the background sweep to retry.
func (s *Service) enqueueProvisioning(ctx context.Context, name domain.DomainName) {
	if s.certificates == nil {
		return
	}
	run := func(taskCtx context.Context) {
		if _, err := s.certificates.Provision(taskCtx, name); err != nil {
			s.logger.ErrorContext(taskCtx, "certificate provisioning failed",
				"domain", name.String(),
				"error", err,
			)
		}
	}
	if s.tasks == nil {
		run(ctx)
		return
	}
	if err := s.tasks.Submit("provision:"+name.String(), run); err != nil {
		s.logger.ErrorContext(ctx, "could not enqueue certificate provisioning",
			"domain", name.String(),
			"error", err,
		)
	}
}
