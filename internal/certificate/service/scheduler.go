package service

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

// RenewalScheduler arms one timer per domain, firing when the active
// certificate enters its renewal window. Scheduling is idempotent: a new
// schedule for a domain replaces the armed timer, so the window of the
// most recently issued certificate always wins.
type RenewalScheduler struct {
	mu      sync.Mutex
	gen     uint64
	timers  map[domain.DomainName]*armedTimer
	stopped bool

	fire    func(domain.DomainName)
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// armedTimer pairs a timer with the generation it was armed under, so a
// timer that fires concurrently with its own replacement can tell it has
// been superseded.
type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

// SchedulerOption configures a RenewalScheduler.
type SchedulerOption func(*RenewalScheduler)

// WithSchedulerLogger sets the logger for timer lifecycle noise.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *RenewalScheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSchedulerMetrics reports the armed-timer count.
func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *RenewalScheduler) {
		s.metrics = m
	}
}

// NewRenewalScheduler builds a scheduler that calls fire when a domain's
// renewal moment arrives. fire must hand the work off quickly (submit to
// the task pool); it runs on the timer goroutine.
func NewRenewalScheduler(fire func(domain.DomainName), opts ...SchedulerOption) *RenewalScheduler {
	s := &RenewalScheduler{
		timers: make(map[domain.DomainName]*armedTimer),
		fire:   fire,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms the renewal timer for name at the given instant. An
// already armed timer for the same domain is replaced. Instants in the
// past fire immediately, still off the caller's goroutine.
func (s *RenewalScheduler) Schedule(name domain.DomainName, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if existing, ok := s.timers[name]; ok {
		existing.timer.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.gen++
	gen := s.gen
	s.timers[name] = &armedTimer{
		timer: time.AfterFunc(delay, func() { s.onFire(name, gen) }),
		gen:   gen,
	}
	s.metrics.SetRenewalTimers(len(s.timers))

	s.logger.Debug("renewal timer armed", "domain", name.String(), "fires_at", at)
}

// Cancel disarms the timer for name, if one is armed.
func (s *RenewalScheduler) Cancel(name domain.DomainName) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[name]; ok {
		existing.timer.Stop()
		delete(s.timers, name)
		s.metrics.SetRenewalTimers(len(s.timers))
	}
}

// Stop disarms every timer. Fire callbacks already running are not
// interrupted; the work they submitted drains with the task pool.
func (s *RenewalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for name, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, name)
	}
	s.metrics.SetRenewalTimers(0)
}

// Len reports how many timers are armed.
func (s *RenewalScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *RenewalScheduler) onFire(name domain.DomainName, gen uint64) {
	s.mu.Lock()
	armed, ok := s.timers[name]
	if s.stopped || !ok || armed.gen != gen {
		// Superseded by a newer schedule or disarmed while firing.
		s.mu.Unlock()
		return
	}
	delete(s.timers, name)
	s.metrics.SetRenewalTimers(len(s.timers))
	s.mu.Unlock()

	// A panicking callback must not kill the timer goroutine's siblings
	// or the process; the sweep picks up anything a lost fire missed.
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(context.Background(), "renewal fire panicked",
				"domain", name.String(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.fire(name)
}
