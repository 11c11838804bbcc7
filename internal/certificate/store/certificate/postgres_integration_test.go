//go:build integration

package certificate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	store "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/store/certificate"
	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/testutil/containers"
)

type CertificatePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestCertificatePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CertificatePostgresSuite))
}

func (s *CertificatePostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *CertificatePostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "certificates")
	s.Require().NoError(err)
}

func newTestCert(name string, issuedAt time.Time) *models.SSLCertificate {
	cert, err := models.NewSSLCertificate(
		domain.NewCertificateID(),
		domain.DomainName(name),
		customdomain.SSLProviderACME,
		issuedAt,
		issuedAt.Add(90*24*time.Hour),
		issuedAt,
	)
	if err != nil {
		panic(err)
	}
	return cert
}

// TestRoundTrip verifies every column survives a write-read cycle.
func (s *CertificatePostgresSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	cert := newTestCert("shop.example.com", now)

	s.Require().NoError(s.store.Put(ctx, cert))

	got, err := s.store.GetActive(ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(cert.ID, got.ID)
	s.Equal(cert.Domain, got.Domain)
	s.Equal(cert.Provider, got.Provider)
	s.Equal(models.CertificateStatusActive, got.Status)
	s.True(cert.IssuedAt.Equal(got.IssuedAt))
	s.True(cert.ExpiresAt.Equal(got.ExpiresAt))
}

func (s *CertificatePostgresSuite) TestPutSupersedesInOneTransaction() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := newTestCert("shop.example.com", now)
	s.Require().NoError(s.store.Put(ctx, first))

	second := newTestCert("shop.example.com", now.Add(time.Hour))
	s.Require().NoError(s.store.Put(ctx, second))

	active, err := s.store.GetActive(ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Equal(second.ID, active.ID)

	history, err := s.store.History(ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(second.ID, history[0].ID)
	s.Equal(models.CertificateStatusSuperseded, history[1].Status)
}

// TestConcurrentPutsLeaveOneActive drives the partial unique index: any
// interleaving of concurrent issuances must leave exactly one active row.
func (s *CertificatePostgresSuite) TestConcurrentPutsLeaveOneActive() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cert := newTestCert("shop.example.com", now.Add(time.Duration(n)*time.Minute))
			// Conflicts are acceptable under contention; duplicate
			// actives are not.
			_ = s.store.Put(ctx, cert)
		}(i)
	}
	wg.Wait()

	var activeCount int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM certificates WHERE domain = $1 AND status = 'active'`,
		"shop.example.com",
	).Scan(&activeCount)
	s.Require().NoError(err)
	s.Equal(1, activeCount)
}

func (s *CertificatePostgresSuite) TestListExpiring() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	soon := newTestCert("soon.example.com", now)
	later := newTestCert("later.example.com", now.Add(30*24*time.Hour))
	s.Require().NoError(s.store.Put(ctx, soon))
	s.Require().NoError(s.store.Put(ctx, later))

	expiring, err := s.store.ListExpiring(ctx, soon.ExpiresAt)
	s.Require().NoError(err)
	s.Require().Len(expiring, 1)
	s.Equal(soon.ID, expiring[0].ID)

	active, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(soon.ID, active[0].ID, "soonest expiry first")
}

func (s *CertificatePostgresSuite) TestMarkExpired() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	cert := newTestCert("shop.example.com", now)
	s.Require().NoError(s.store.Put(ctx, cert))

	s.Require().NoError(s.store.MarkExpired(ctx, cert.ID, now.Add(91*24*time.Hour)))

	_, err := s.store.GetActive(ctx, "shop.example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)

	history, err := s.store.History(ctx, "shop.example.com")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.CertificateStatusExpired, history[0].Status)

	s.ErrorIs(s.store.MarkExpired(ctx, domain.NewCertificateID(), now), sentinel.ErrNotFound)
}
