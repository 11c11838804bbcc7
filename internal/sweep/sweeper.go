// Package sweep drives the periodic full re-verification of every active
// custom domain. It is the safety net behind the request-path debouncer:
// domains that see no traffic still get their DNS re-checked, their
// certificates renewed or expired, and their health snapshots kept warm.
package sweep

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	certmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	cdmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	healthmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/sweep/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

const tracerName = "convocommerce/sweep"

// DomainLister enumerates the domains a pass visits.
type DomainLister interface {
	ListActive(ctx context.Context) ([]*cdmodels.DomainConfig, error)
}

// Verifier runs the ownership checks for one domain.
type Verifier interface {
	Verify(ctx context.Context, name domain.DomainName) (*cdmodels.VerificationResult, error)
}

// CertificateManager is the certificate work a pass performs: expiring
// lapsed certificates up front and restarting issuance for domains that
// verified but never got one.
type CertificateManager interface {
	Provision(ctx context.Context, name domain.DomainName) (*certmodels.SSLCertificate, error)
	ExpireLapsed(ctx context.Context) (int, error)
}

// HealthMonitor refreshes a domain's cached health snapshot.
type HealthMonitor interface {
	Refresh(ctx context.Context, name domain.DomainName) *healthmodels.DomainHealth
}

// Sweeper owns the sweep loop. Start launches it; Stop halts it between
// domains, letting the one in flight finish under its own probe timeouts.
type Sweeper struct {
	domains      DomainLister
	verifier     Verifier
	certificates CertificateManager
	health       HealthMonitor
	interval     time.Duration
	limiter      *rate.Limiter
	logger       *slog.Logger
	metrics      *metrics.Metrics

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithCertificateManager enables certificate expiry and issuance retry
// during passes.
func WithCertificateManager(manager CertificateManager) Option {
	return func(s *Sweeper) {
		s.certificates = manager
	}
}

// WithHealthMonitor refreshes health snapshots as domains are swept.
func WithHealthMonitor(monitor HealthMonitor) Option {
	return func(s *Sweeper) {
		s.health = monitor
	}
}

// WithDomainDelay sets the pacing between domains. Defaults to one domain
// per second so a large tenant base cannot saturate outbound DNS or HTTP.
func WithDomainDelay(delay time.Duration) Option {
	return func(s *Sweeper) {
		if delay > 0 {
			s.limiter = rate.NewLimiter(rate.Every(delay), 1)
		}
	}
}

func New(domains DomainLister, verifier Verifier, interval time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		domains:  domains,
		verifier: verifier,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the sweep loop. The first pass begins immediately.
// Starting a running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.loop(ctx, stop, done)
}

// Stop halts the loop and blocks until it exits. The in-flight domain
// finishes its checks; no new domain is started. A later Start begins a
// fresh full pass.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

// Run starts the sweeper, blocks until ctx is canceled, then stops it.
// Shaped for errgroup supervision from main.
func (s *Sweeper) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

func (s *Sweeper) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	for {
		s.pass(ctx, stop)
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(s.interval):
		}
	}
}

// pass visits every active domain once. One bad domain never aborts the
// pass; its error is logged and counted.
func (s *Sweeper) pass(ctx context.Context, stop chan struct{}) {
	select {
	case <-stop:
		return
	case <-ctx.Done():
		return
	default:
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "sweep.pass")
	defer span.End()
	start := time.Now()

	if s.certificates != nil {
		expired, err := s.certificates.ExpireLapsed(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "lapsed certificate scan failed", "error", err)
		}
		s.metrics.AddCertsExpired(expired)
	}

	domains, err := s.domains.ListActive(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not enumerate domains for sweep", "error", err)
		return
	}
	span.SetAttributes(attribute.Int("domains", len(domains)))

	swept := 0
	for _, d := range domains {
		if !d.Status.VerificationEligible() {
			continue
		}
		select {
		case <-stop:
			s.logger.InfoContext(ctx, "sweep interrupted", "swept", swept)
			return
		case <-ctx.Done():
			return
		default:
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.sweepOne(ctx, d)
		swept++
	}

	s.metrics.IncrementPass()
	s.metrics.ObservePass(start)
	s.logger.InfoContext(ctx, "sweep pass complete",
		"domains", swept,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
}

// sweepOne re-verifies a single domain, restarts stalled certificate
// issuance, and refreshes its health snapshot. Panics are contained here so
// the pass continues with the next domain.
func (s *Sweeper) sweepOne(ctx context.Context, d *cdmodels.DomainConfig) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncrementError()
			s.logger.ErrorContext(ctx, "sweep panicked on domain",
				"domain", d.Domain.String(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.metrics.IncrementSwept()

	if _, err := s.verifier.Verify(ctx, d.Domain); err != nil {
		s.metrics.IncrementError()
		s.logger.WarnContext(ctx, "sweep verification failed",
			"domain", d.Domain.String(),
			"error", err,
		)
	}

	if s.certificates != nil && s.needsIssuanceRetry(d) {
		if _, err := s.certificates.Provision(ctx, d.Domain); err != nil {
			s.metrics.IncrementError()
			s.logger.WarnContext(ctx, "sweep issuance retry failed",
				"domain", d.Domain.String(),
				"error", err,
			)
		}
	}

	if s.health != nil {
		s.health.Refresh(ctx, d.Domain)
	}
}

// needsIssuanceRetry reports whether the domain proved ownership but has no
// live certificate flow: either provisioning never started (a lost task
// after verification) or the last attempt failed. The listing's status is
// deliberately used unrefreshed; a domain the verifier just advanced out of
// pending_verification already has provisioning queued, and the transition
// guards reject a duplicate start.
func (s *Sweeper) needsIssuanceRetry(d *cdmodels.DomainConfig) bool {
	if !d.SSLEnabled {
		return false
	}
	return d.Status == cdmodels.DomainStatusVerified || d.Status == cdmodels.DomainStatusSSLFailed
}
