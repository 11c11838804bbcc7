// Package debounce re-verifies a custom domain at most once per interval,
// triggered by live storefront traffic. It is the only coupling between the
// serving layer and the verification machinery: requests flow through
// untouched while stale domains get queued for a background re-check.
package debounce

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	cdmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	healthmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

// Store remembers when a domain was last queued for verification.
// LastVerified reports a miss with ok=false; err is reserved for
// infrastructure failures.
type Store interface {
	LastVerified(ctx context.Context, name domain.DomainName) (at time.Time, ok bool, err error)
	MarkVerified(ctx context.Context, name domain.DomainName, at time.Time) error
}

// DomainStore resolves a host to its registered domain config.
type DomainStore interface {
	FindByDomain(ctx context.Context, name domain.DomainName) (*cdmodels.DomainConfig, error)
}

// Verifier runs the ownership checks for a domain.
type Verifier interface {
	Verify(ctx context.Context, name domain.DomainName) (*cdmodels.VerificationResult, error)
}

// HealthMonitor refreshes the cached health snapshot after a re-check.
type HealthMonitor interface {
	Refresh(ctx context.Context, name domain.DomainName) *healthmodels.DomainHealth
}

// TaskQueue runs work detached from the calling request.
type TaskQueue interface {
	Submit(name string, fn func(context.Context)) error
}

// Debouncer throttles request-triggered verification to once per interval
// per domain. The request path only ever pays for the window check; the
// verification itself runs on the task pool.
type Debouncer struct {
	store    Store
	domains  DomainStore
	verifier Verifier
	tasks    TaskQueue
	health   HealthMonitor
	interval time.Duration
	logger   *slog.Logger

	// mu serializes the window re-check and mark at window open so a burst
	// of simultaneous requests queues exactly one task per process.
	mu sync.Mutex
}

type Option func(*Debouncer)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Debouncer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithHealthMonitor also refreshes the domain's health snapshot after each
// debounced verification.
func WithHealthMonitor(monitor HealthMonitor) Option {
	return func(d *Debouncer) {
		d.health = monitor
	}
}

func New(store Store, domains DomainStore, verifier Verifier, tasks TaskQueue, interval time.Duration, opts ...Option) *Debouncer {
	d := &Debouncer{
		store:    store,
		domains:  domains,
		verifier: verifier,
		tasks:    tasks,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger queues a verification for host unless one ran within the
// interval. It never blocks on verification work and never fails: hosts
// that are not custom domains (localhost, IP literals, unregistered names)
// are ignored.
func (d *Debouncer) Trigger(ctx context.Context, host string) {
	name, err := domain.ParseHostHeader(host)
	if err != nil {
		return
	}
	now := requestcontext.Now(ctx)

	// Fast path, no lock: inside the window means nothing to do. This is
	// every request after the first, so it must stay cheap.
	last, ok, err := d.store.LastVerified(ctx, name)
	if err != nil {
		d.logger.WarnContext(ctx, "debounce store read failed",
			"domain", name.String(),
			"error", err,
		)
		return
	}
	if ok && now.Sub(last) < d.interval {
		return
	}

	if !d.claimWindow(ctx, name, now) {
		return
	}

	// The mark is already in place, so an unknown or ineligible host costs
	// one store lookup per interval, not one per request.
	cfg, err := d.domains.FindByDomain(ctx, name)
	if err != nil {
		return
	}
	if !cfg.Status.VerificationEligible() {
		return
	}

	task := func(taskCtx context.Context) {
		if _, err := d.verifier.Verify(taskCtx, name); err != nil {
			d.logger.ErrorContext(taskCtx, "debounced verification failed",
				"domain", name.String(),
				"error", err,
			)
		}
		if d.health != nil {
			d.health.Refresh(taskCtx, name)
		}
	}
	if err := d.tasks.Submit("debounce:"+name.String(), task); err != nil {
		// The mark stands; the background sweep covers the miss.
		d.logger.WarnContext(ctx, "could not enqueue debounced verification",
			"domain", name.String(),
			"error", err,
		)
	}
}

// claimWindow re-checks the window under the lock and marks the domain
// before any work starts. Exactly one caller in a burst wins the claim.
func (d *Debouncer) claimWindow(ctx context.Context, name domain.DomainName, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok, err := d.store.LastVerified(ctx, name)
	if err == nil && ok && now.Sub(last) < d.interval {
		return false
	}
	if err := d.store.MarkVerified(ctx, name, now); err != nil {
		d.logger.WarnContext(ctx, "debounce store write failed",
			"domain", name.String(),
			"error", err,
		)
		return false
	}
	return true
}

// Middleware fires Trigger for every request's Host header and passes the
// request through untouched. Mount it ahead of the storefront routes.
func (d *Debouncer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.Trigger(r.Context(), r.Host)
		next.ServeHTTP(w, r)
	})
}
