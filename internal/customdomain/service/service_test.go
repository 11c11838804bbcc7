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

const platformApex = "platform.io"

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	store     *domainconfig.InMemory
	inspector *mocks.MockInspector
	sink      *events.MemorySink
	svc       *service.Service
	tenantID  domain.TenantID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = domainconfig.NewInMemory()
	s.inspector = mocks.NewMockInspector(gomock.NewController(s.T()))
	s.sink = events.NewMemorySink()
	s.tenantID = domain.NewTenantID()
	s.svc = service.New(s.store, s.inspector, platformApex,
		service.WithEventPublisher(events.NewPublisher(s.sink)),
	)
}

func (s *ServiceSuite) register(name string) *models.DomainConfig {
	d, _, err := s.svc.Register(s.ctx, service.RegisterParams{
		TenantID:          s.tenantID,
		Domain:            name,
		PlatformSubdomain: "acme",
		SSLEnabled:        true,
		SSLProvider:       models.SSLProviderACME,
		AutoRenew:         true,
	})
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) TestRegister() {
	d, instructions, err := s.svc.Register(s.ctx, service.RegisterParams{
		TenantID:          s.tenantID,
		Domain:            "Shop.Example.COM",
		PlatformSubdomain: "acme",
		SSLEnabled:        true,
		SSLProvider:       models.SSLProviderACME,
		AutoRenew:         true,
	})
	s.Require().NoError(err)

	s.Equal(domain.DomainName("shop.example.com"), d.Domain, "names are normalized on the way in")
	s.Equal(models.DomainStatusPendingVerification, d.Status)
	s.Equal(domain.DomainName("acme.platform.io"), d.CNAMETarget)
	s.GreaterOrEqual(len(d.VerificationToken), 32)
	s.Nil(d.VerifiedAt)
	s.EqualValues(0, d.Version)

	s.Require().NotNil(instructions)
	s.Equal("convocommerce-verify="+d.VerificationToken, instructions.TXTRecord)
	s.Equal("acme.platform.io", instructions.CNAMERecord)
	s.NotEmpty(instructions.Instructions)

	s.Contains(s.sink.TypesSeen(), events.TypeDomainRegistered)

	stored, err := s.store.FindByDomain(s.ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(d.ID, stored.ID)
}

func (s *ServiceSuite) TestRegisterValidation() {
	cases := []struct {
		name     string
		params   service.RegisterParams
		wantCode dErrors.Code
	}{
		{
			name: "missing tenant",
			params: service.RegisterParams{
				Domain:            "shop.example.com",
				PlatformSubdomain: "acme",
			},
			wantCode: dErrors.CodeInvalidInput,
		},
		{
			name: "malformed domain",
			params: service.RegisterParams{
				TenantID:          s.tenantID,
				Domain:            "not a domain",
				PlatformSubdomain: "acme",
			},
			wantCode: dErrors.CodeInvalidInput,
		},
		{
			name: "single label",
			params: service.RegisterParams{
				TenantID:          s.tenantID,
				Domain:            "shop",
				PlatformSubdomain: "acme",
			},
			wantCode: dErrors.CodeInvalidInput,
		},
		{
			name: "ip literal",
			params: service.RegisterParams{
				TenantID:          s.tenantID,
				Domain:            "203.0.113.10",
				PlatformSubdomain: "acme",
			},
			wantCode: dErrors.CodeInvalidInput,
		},
		{
			name: "platform apex itself",
			params: service.RegisterParams{
				TenantID:          s.tenantID,
				Domain:            "platform.io",
				PlatformSubdomain: "acme",
			},
			wantCode: dErrors.CodeInvalidInput,
		},
		{
			name: "subdomain of the platform apex",
			params: service.RegisterParams{
				TenantID:          s.tenantID,
				Domain:            "evil.platform.io",
				PlatformSubdomain: "acme",
			},
			wantCode: dErrors.CodeInvalidInput,
		},
		{
			name: "ssl enabled without a valid provider",
			params: service.RegisterParams{
				TenantID:          s.tenantID,
				Domain:            "shop.example.com",
				PlatformSubdomain: "acme",
				SSLEnabled:        true,
				SSLProvider:       models.SSLProvider("smoke-signals"),
			},
			wantCode: dErrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, _, err := s.svc.Register(s.ctx, tc.params)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.wantCode), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestRegisterDuplicate() {
	s.register("shop.example.com")

	_, _, err := s.svc.Register(s.ctx, service.RegisterParams{
		TenantID:          domain.NewTenantID(),
		Domain:            "shop.example.com",
		PlatformSubdomain: "other",
		SSLEnabled:        false,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict),
		"a domain name is unique across all tenants")
}

func (s *ServiceSuite) TestGetIsTenantScoped() {
	s.register("shop.example.com")

	d, err := s.svc.Get(s.ctx, s.tenantID, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(s.tenantID, d.TenantID)

	_, err = s.svc.Get(s.ctx, domain.NewTenantID(), "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound),
		"another tenant's domain must be indistinguishable from an absent one")
}

func (s *ServiceSuite) TestList() {
	s.register("one.example.com")
	s.register("two.example.com")

	mine, err := s.svc.List(s.ctx, s.tenantID)
	s.Require().NoError(err)
	s.Len(mine, 2)

	others, err := s.svc.List(s.ctx, domain.NewTenantID())
	s.Require().NoError(err)
	s.Empty(others)
}

func (s *ServiceSuite) TestInstructions() {
	d := s.register("shop.example.com")

	instructions, err := s.svc.Instructions(s.ctx, s.tenantID, "shop.example.com")
	s.Require().NoError(err)
	s.Equal("convocommerce-verify="+d.VerificationToken, instructions.TXTRecord)

	_, err = s.svc.Instructions(s.ctx, s.tenantID, "ghost.example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.Release(s.ctx, s.tenantID, "shop.example.com")
	s.Require().NoError(err)

	_, err = s.svc.Instructions(s.ctx, s.tenantID, "shop.example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}
