// Package publisher fronts an audit store. In sync mode Emit appends inline;
// with an async buffer events are queued and persisted by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	audit "creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/audit/worker"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by Emit when the async buffer has no room. The
// event is dropped and counted.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events for a background worker.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.bufferSize = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDropHook is called once per event dropped on a full buffer.
func WithDropHook(fn func(audit.Event)) Option {
	return func(p *Publisher) {
		p.onDrop = fn
	}
}

type Publisher struct {
	store      audit.Store
	logger     *slog.Logger
	bufferSize int
	onDrop     func(audit.Event)

	mu      sync.RWMutex
	closed  bool
	events  chan audit.Event
	done    chan struct{}
	dropped atomic.Uint64
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.events = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.events, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps the event with an id, timestamp and category when unset, then
// stores or queues it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.events == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.events <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.dropped.Add(1)
	if p.onDrop != nil {
		p.onDrop(event)
	}
	return ErrBufferFull
}

// List returns the events recorded for requestID.
func (p *Publisher) List(ctx context.Context, requestID string) ([]audit.Event, error) {
	return p.store.ListByRequest(ctx, requestID)
}

// Recent returns up to limit events, most recent first.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Dropped reports how many events were lost to a full buffer.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be persisted.
func (p *Publisher) Close() {
	if p.events == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.done
}
