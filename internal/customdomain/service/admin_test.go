package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/service"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/store/domainconfig"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/inspector/mocks"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

type AdminSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	store    *domainconfig.InMemory
	sink     *events.MemorySink
	svc      *service.Service
	tenantID domain.TenantID
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithAdminSubject(
		requestcontext.WithTime(context.Background(), s.now),
		"ops@convocommerce.internal",
	)
	s.store = domainconfig.NewInMemory()
	s.sink = events.NewMemorySink()
	s.tenantID = domain.NewTenantID()
	s.svc = service.New(s.store, mocks.NewMockInspector(gomock.NewController(s.T())), platformApex,
		service.WithEventPublisher(events.NewPublisher(s.sink)),
	)
}

func (s *AdminSuite) seedDomain(name string, status models.DomainStatus) *models.DomainConfig {
	d, err := models.NewDomainConfig(
		domain.NewDomainID(),
		s.tenantID,
		domain.DomainName(name),
		"acme",
		"acme.platform.io",
		testToken,
		true,
		models.SSLProviderACME,
		true,
		s.now.Add(-time.Hour),
	)
	s.Require().NoError(err)

	earlier := s.now.Add(-30 * time.Minute)
	switch status {
	case models.DomainStatusPendingVerification:
	case models.DomainStatusVerified:
		s.Require().NoError(d.MarkVerified(earlier))
	case models.DomainStatusSSLActive:
		s.Require().NoError(d.MarkVerified(earlier))
		s.Require().NoError(d.BeginIssuance(earlier))
		s.Require().NoError(d.ActivateCertificate(earlier))
	case models.DomainStatusSuspended:
		s.Require().NoError(d.Suspend(earlier))
	case models.DomainStatusReleased:
		s.Require().NoError(d.Release(earlier))
	default:
		s.FailNowf("unhandled seed status", "%s", status)
	}

	s.Require().NoError(s.store.Create(s.ctx, d))
	return d
}

func (s *AdminSuite) eventsOfType(eventType events.Type) []events.Event {
	var out []events.Event
	for _, e := range s.sink.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (s *AdminSuite) TestSuspend() {
	s.seedDomain("shop.example.com", models.DomainStatusSSLActive)

	d, err := s.svc.Suspend(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(models.DomainStatusSuspended, d.Status)

	suspensions := s.eventsOfType(events.TypeDomainSuspended)
	s.Require().Len(suspensions, 1)
	s.Equal("ssl_active", suspensions[0].Metadata["previous_status"],
		"the event records where the domain was held from")
}

func (s *AdminSuite) TestSuspendReleasedDomain() {
	s.seedDomain("shop.example.com", models.DomainStatusReleased)

	_, err := s.svc.Suspend(s.ctx, "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "released is terminal")
}

func (s *AdminSuite) TestSuspendUnknownDomain() {
	_, err := s.svc.Suspend(s.ctx, "ghost.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AdminSuite) TestReinstate() {
	s.seedDomain("shop.example.com", models.DomainStatusSuspended)

	d, err := s.svc.Reinstate(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(models.DomainStatusPendingVerification, d.Status,
		"reinstatement re-enters verification, it does not restore the prior state")
	s.Nil(d.VerifiedAt, "the old ownership proof is discarded")
	s.Contains(s.sink.TypesSeen(), events.TypeDomainReinstated)
}

func (s *AdminSuite) TestReinstateRequiresSuspension() {
	s.seedDomain("shop.example.com", models.DomainStatusVerified)

	_, err := s.svc.Reinstate(s.ctx, "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *AdminSuite) TestMarkFailed() {
	s.seedDomain("shop.example.com", models.DomainStatusPendingVerification)

	d, err := s.svc.MarkFailed(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(models.DomainStatusFailed, d.Status)
	s.Contains(s.sink.TypesSeen(), events.TypeDomainFailed)
}

func (s *AdminSuite) TestMarkFailedKeepsProvenDomains() {
	s.seedDomain("shop.example.com", models.DomainStatusVerified)

	_, err := s.svc.MarkFailed(s.ctx, "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState),
		"a domain that proved ownership cannot be marked as failed verification")
}

func (s *AdminSuite) TestRelease() {
	s.seedDomain("shop.example.com", models.DomainStatusSSLActive)

	d, err := s.svc.Release(s.ctx, s.tenantID, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(models.DomainStatusReleased, d.Status)
	s.Contains(s.sink.TypesSeen(), events.TypeDomainReleased)

	// The row survives release so references never dangle.
	stored, err := s.svc.Get(s.ctx, s.tenantID, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(models.DomainStatusReleased, stored.Status)
}

func (s *AdminSuite) TestReleaseIsTenantScoped() {
	s.seedDomain("shop.example.com", models.DomainStatusVerified)

	_, err := s.svc.Release(s.ctx, domain.NewTenantID(), "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.store.FindByDomain(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(models.DomainStatusVerified, stored.Status, "the wrong tenant's request changes nothing")
}

func (s *AdminSuite) TestReleaseTwice() {
	s.seedDomain("shop.example.com", models.DomainStatusVerified)

	_, err := s.svc.Release(s.ctx, s.tenantID, "shop.example.com")
	s.Require().NoError(err)

	_, err = s.svc.Release(s.ctx, s.tenantID, "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
}

func (s *AdminSuite) TestReleasedIsTerminal() {
	s.seedDomain("shop.example.com", models.DomainStatusReleased)

	_, err := s.svc.Reinstate(s.ctx, "shop.example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.svc.MarkFailed(s.ctx, "shop.example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *AdminSuite) TestSuspendHaltsVerification() {
	s.seedDomain("shop.example.com", models.DomainStatusPendingVerification)

	_, err := s.svc.Suspend(s.ctx, "shop.example.com")
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.ctx, "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}
