package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink delivers a single event to a transport.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher stamps, fans out, and optionally buffers events. In sync mode
// Emit delivers inline; with an async buffer Emit never blocks the caller
// and a full buffer drops the event (publish failures must never stall or
// fail the domain operation that produced them).
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery through a buffer of the
// given size. Close drains the buffer before returning.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

// WithPublisherLogger sets the logger for delivery failures and drops.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher constructs a Publisher over the given sink.
func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.run()
	}
	return p
}

// Emit publishes an event, stamping OccurredAt when unset. In async mode a
// full buffer logs and drops; the error return is always nil there so
// callers cannot couple domain outcomes to event delivery.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if p.inbox == nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "event publish failed",
				"event_type", string(event.Type),
				"domain", event.Domain,
				"error", err,
			)
			return err
		}
		return nil
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("event buffer full, dropping event",
			"event_type", string(event.Type),
			"domain", event.Domain,
		)
	}
	return nil
}

// Close stops the async worker after draining buffered events. Safe to
// call multiple times and in sync mode.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		// Detached context: the emitting request may be long gone.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.Error("event publish failed",
				"event_type", string(event.Type),
				"domain", event.Domain,
				"error", err,
			)
		}
		cancel()
	}
}
