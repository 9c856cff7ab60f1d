// Package publisher decouples audit emission from storage. The submission
// workflow emits through a Publisher so a failing audit sink can never unwind
// a change that already opened an external review request.
package publisher

import (
	"context"
	"sync"
	"time"

	"roster/pkg/platform/audit"
)

// Publisher writes audit events to a store, optionally through an async
// buffer. Emit never blocks on a full buffer; it falls back to a synchronous
// write instead of dropping the event.
type Publisher struct {
	store audit.Store

	inbox  chan audit.Event
	wg     sync.WaitGroup
	closed chan struct{}

	mu      sync.Mutex
	lastErr error
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.inbox:
			p.append(event)
		case <-p.closed:
			for {
				select {
				case event := <-p.inbox:
					p.append(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) append(event audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.Append(ctx, event); err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
	}
}

// Emit records an audit event. In async mode the event is buffered; in sync
// mode it is written immediately. The returned error is informational only;
// callers on the submission success path log it and continue.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
			return nil
		default:
			// Buffer full: write synchronously rather than dropping.
		}
	}
	return p.store.Append(ctx, event)
}

// List returns events recorded for a subject.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// LastError returns the most recent background append failure, if any.
func (p *Publisher) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close drains the async buffer and stops the background worker.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	close(p.closed)
	p.wg.Wait()
}
