package sweep_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	certmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	healthmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/sweep"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

type fakeLister struct {
	mu      sync.Mutex
	domains []*models.DomainConfig
	err     error
	calls   int
	listed  chan struct{}
}

func (f *fakeLister) ListActive(ctx context.Context) ([]*models.DomainConfig, error) {
	f.mu.Lock()
	f.calls++
	domains, err := f.domains, f.err
	f.mu.Unlock()
	select {
	case f.listed <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	out := make([]*models.DomainConfig, len(domains))
	copy(out, domains)
	return out, nil
}

func (f *fakeLister) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVerifier struct {
	mu          sync.Mutex
	names       []domain.DomainName
	panicOn     domain.DomainName
	blockOn     domain.DomainName
	started     chan struct{}
	release     chan struct{}
	releaseOnce sync.Once
}

func (f *fakeVerifier) Verify(ctx context.Context, name domain.DomainName) (*models.VerificationResult, error) {
	f.mu.Lock()
	f.names = append(f.names, name)
	panicOn, blockOn := f.panicOn, f.blockOn
	f.mu.Unlock()
	if name == panicOn {
		panic("verification exploded")
	}
	if name == blockOn {
		f.started <- struct{}{}
		<-f.release
	}
	return &models.VerificationResult{Domain: name.String(), Verified: true}, nil
}

func (f *fakeVerifier) verified() []domain.DomainName {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DomainName, len(f.names))
	copy(out, f.names)
	return out
}

func (f *fakeVerifier) unblock() {
	f.releaseOnce.Do(func() { close(f.release) })
}

type fakeCertManager struct {
	mu          sync.Mutex
	provisioned []domain.DomainName
	expireCalls int
	expireN     int
	expireErr   error
}

func (f *fakeCertManager) Provision(ctx context.Context, name domain.DomainName) (*certmodels.SSLCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisioned = append(f.provisioned, name)
	return nil, nil
}

func (f *fakeCertManager) ExpireLapsed(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls++
	return f.expireN, f.expireErr
}

func (f *fakeCertManager) provisionedNames() []domain.DomainName {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DomainName, len(f.provisioned))
	copy(out, f.provisioned)
	return out
}

func (f *fakeCertManager) lapsedScans() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expireCalls
}

type fakeHealthMonitor struct {
	mu        sync.Mutex
	refreshed []domain.DomainName
	signal    chan struct{}
}

func (f *fakeHealthMonitor) Refresh(ctx context.Context, name domain.DomainName) *healthmodels.DomainHealth {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, name)
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
	return &healthmodels.DomainHealth{Domain: name.String(), IsHealthy: true, Issues: []string{}}
}

func (f *fakeHealthMonitor) refreshedNames() []domain.DomainName {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DomainName, len(f.refreshed))
	copy(out, f.refreshed)
	return out
}

type SweeperSuite struct {
	suite.Suite
	ctx      context.Context
	lister   *fakeLister
	verifier *fakeVerifier
	certs    *fakeCertManager
	health   *fakeHealthMonitor
	sweeper  *sweep.Sweeper
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.ctx = context.Background()
	s.lister = &fakeLister{listed: make(chan struct{}, 16)}
	s.verifier = &fakeVerifier{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s.certs = &fakeCertManager{}
	s.health = &fakeHealthMonitor{signal: make(chan struct{}, 64)}
	s.sweeper = sweep.New(s.lister, s.verifier, time.Hour,
		sweep.WithCertificateManager(s.certs),
		sweep.WithHealthMonitor(s.health),
		sweep.WithDomainDelay(time.Millisecond),
	)
}

func (s *SweeperSuite) TearDownTest() {
	s.verifier.unblock()
	s.sweeper.Stop()
}

// domainIn builds a config walked to the given lifecycle status.
func (s *SweeperSuite) domainIn(name string, status models.DomainStatus, ssl bool) *models.DomainConfig {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d, err := models.NewDomainConfig(
		domain.NewDomainID(),
		domain.NewTenantID(),
		domain.DomainName(name),
		"acme",
		"acme.platform.io",
		"3f9c1a7e5b2d48c6a0e8f4719d3b5c7e",
		ssl,
		models.SSLProviderACME,
		ssl,
		created,
	)
	s.Require().NoError(err)

	at := created.Add(30 * time.Minute)
	switch status {
	case models.DomainStatusPendingVerification:
	case models.DomainStatusVerified:
		s.Require().NoError(d.MarkVerified(at))
	case models.DomainStatusSSLFailed:
		s.Require().NoError(d.MarkVerified(at))
		s.Require().NoError(d.BeginIssuance(at))
		s.Require().NoError(d.FailIssuance(at))
	case models.DomainStatusSSLActive:
		s.Require().NoError(d.MarkVerified(at))
		s.Require().NoError(d.BeginIssuance(at))
		s.Require().NoError(d.ActivateCertificate(at))
	case models.DomainStatusSuspended:
		s.Require().NoError(d.Suspend(at))
	default:
		s.T().Fatalf("no fixture path to status %s", status)
	}
	return d
}

// awaitHealthRefreshes blocks until n domains have completed their sweep,
// using the health refresh as the end-of-domain marker.
func (s *SweeperSuite) awaitHealthRefreshes(n int) {
	s.T().Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.health.signal:
		case <-time.After(2 * time.Second):
			s.T().Fatalf("timed out waiting for sweep %d of %d", i+1, n)
		}
	}
}

func (s *SweeperSuite) awaitList() {
	s.T().Helper()
	select {
	case <-s.lister.listed:
	case <-time.After(2 * time.Second):
		s.T().Fatal("timed out waiting for the sweep to list domains")
	}
}

func (s *SweeperSuite) TestPassSweepsEligibleDomainsOnly() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("one.example.com", models.DomainStatusPendingVerification, false),
		s.domainIn("held.example.com", models.DomainStatusSuspended, false),
		s.domainIn("two.example.com", models.DomainStatusSSLActive, true),
	}

	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(2)
	s.sweeper.Stop()

	want := []domain.DomainName{"one.example.com", "two.example.com"}
	s.Equal(want, s.verifier.verified())
	s.Equal(want, s.health.refreshedNames())
}

func (s *SweeperSuite) TestIssuanceRetryForStalledDomains() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("stuck.example.com", models.DomainStatusVerified, true),
		s.domainIn("failed.example.com", models.DomainStatusSSLFailed, true),
		s.domainIn("plain.example.com", models.DomainStatusVerified, false),
		s.domainIn("live.example.com", models.DomainStatusSSLActive, true),
	}

	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(4)
	s.sweeper.Stop()

	s.Equal(
		[]domain.DomainName{"stuck.example.com", "failed.example.com"},
		s.certs.provisionedNames(),
		"only domains with proven ownership and no live certificate flow restart issuance",
	)
}

func (s *SweeperSuite) TestLapsedCertificateScanRunsEachPass() {
	s.certs.expireN = 3
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("one.example.com", models.DomainStatusPendingVerification, false),
	}

	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(1)
	s.sweeper.Stop()

	s.Equal(1, s.certs.lapsedScans())
}

func (s *SweeperSuite) TestStopLetsInFlightDomainFinish() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("slow.example.com", models.DomainStatusPendingVerification, false),
		s.domainIn("next.example.com", models.DomainStatusPendingVerification, false),
	}
	s.verifier.blockOn = "slow.example.com"

	s.sweeper.Start(s.ctx)
	<-s.verifier.started

	stopped := make(chan struct{})
	go func() {
		s.sweeper.Stop()
		close(stopped)
	}()
	time.Sleep(20 * time.Millisecond)
	s.verifier.unblock()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		s.T().Fatal("Stop did not return after the in-flight domain finished")
	}

	s.Equal([]domain.DomainName{"slow.example.com"}, s.verifier.verified())
	s.Equal([]domain.DomainName{"slow.example.com"}, s.health.refreshedNames(),
		"the in-flight domain completes its full sweep before the loop exits",
	)
}

func (s *SweeperSuite) TestStartAfterStopBeginsFreshPass() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("one.example.com", models.DomainStatusPendingVerification, false),
	}

	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(1)
	s.sweeper.Stop()

	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(1)
	s.sweeper.Stop()

	s.Equal(2, s.lister.listCalls())
	s.Equal(
		[]domain.DomainName{"one.example.com", "one.example.com"},
		s.verifier.verified(),
	)
}

func (s *SweeperSuite) TestPanickingDomainDoesNotAbortPass() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("boom.example.com", models.DomainStatusPendingVerification, false),
		s.domainIn("fine.example.com", models.DomainStatusPendingVerification, false),
	}
	s.verifier.panicOn = "boom.example.com"

	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(1)
	s.sweeper.Stop()

	s.Equal(
		[]domain.DomainName{"boom.example.com", "fine.example.com"},
		s.verifier.verified(),
	)
	s.Equal([]domain.DomainName{"fine.example.com"}, s.health.refreshedNames())
}

func (s *SweeperSuite) TestListFailureSkipsThePass() {
	s.lister.err = context.DeadlineExceeded

	s.sweeper.Start(s.ctx)
	s.awaitList()
	s.sweeper.Stop()

	s.Empty(s.verifier.verified())
	s.Equal(1, s.certs.lapsedScans(), "the lapsed scan runs before the listing")
}

func (s *SweeperSuite) TestStartWhileRunningIsANoOp() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("one.example.com", models.DomainStatusPendingVerification, false),
	}

	s.sweeper.Start(s.ctx)
	s.sweeper.Start(s.ctx)
	s.awaitHealthRefreshes(1)
	s.sweeper.Stop()

	s.Equal(1, s.lister.listCalls())
}

func (s *SweeperSuite) TestStopWithoutStartReturns() {
	s.sweeper.Stop()
	s.sweeper.Stop()
}

func (s *SweeperSuite) TestPassesRepeatOnTheInterval() {
	quick := sweep.New(s.lister, s.verifier, 10*time.Millisecond,
		sweep.WithHealthMonitor(s.health),
		sweep.WithDomainDelay(time.Millisecond),
	)
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("one.example.com", models.DomainStatusPendingVerification, false),
	}

	quick.Start(s.ctx)
	s.awaitList()
	s.awaitList()
	quick.Stop()

	s.GreaterOrEqual(s.lister.listCalls(), 2)
}

func (s *SweeperSuite) TestRunStopsOnContextCancel() {
	s.lister.domains = []*models.DomainConfig{
		s.domainIn("one.example.com", models.DomainStatusPendingVerification, false),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.sweeper.Run(ctx) }()

	s.awaitHealthRefreshes(1)
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		s.T().Fatal("Run did not return after cancellation")
	}
}
