// Package tasks provides a bounded background worker pool. Detached work
// (debounced verification, certificate provisioning, renewal firing) is
// submitted here instead of spawned ad hoc, so shutdown can drain in-flight
// tasks and tests can await completion deterministically.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed is returned by Submit after shutdown has begun.
	ErrClosed = errors.New("task pool closed")
	// ErrQueueFull is returned by Submit when the bounded queue is at capacity.
	ErrQueueFull = errors.New("task queue full")
)

type task struct {
	name string
	run  func(context.Context)
}

// Pool runs submitted tasks on a fixed set of workers. Each task executes
// with its own timeout context detached from the submitter's request, since
// background verification must outlive the request that triggered it.
type Pool struct {
	mu      sync.Mutex
	queue   chan task
	closed  bool
	started atomic.Bool
	wg      sync.WaitGroup

	workers     int
	taskTimeout time.Duration
	logger      *slog.Logger
	observe     func(name string, d time.Duration)
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for panics and drops.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTaskTimeout bounds each task's context. Defaults to 60s.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

// WithObserver registers a per-task duration callback (metrics hook).
func WithObserver(fn func(name string, d time.Duration)) Option {
	return func(p *Pool) {
		p.observe = fn
	}
}

// New builds a stopped pool with the given worker count and queue capacity.
func New(workers, queueSize int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Pool{
		queue:       make(chan task, queueSize),
		workers:     workers,
		taskTimeout: 60 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. Calling Start more than once is a no-op.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit enqueues a task for background execution. It never blocks: a full
// queue returns ErrQueueFull so the caller can log and move on.
func (p *Pool) Submit(name string, fn func(context.Context)) error {
	if fn == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- task{name: name, run: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown refuses new work, drains everything already queued, and waits for
// workers to finish, bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	if !p.started.Load() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the pool, blocks until ctx is canceled, then shuts down with a
// 30s drain budget. Shaped for errgroup supervision from main.
func (p *Pool) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		p.execute(t)
	}
}

func (p *Pool) execute(t task) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				"task", t.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if p.observe != nil {
			p.observe(t.name, time.Since(start))
		}
	}()

	t.run(ctx)
}
