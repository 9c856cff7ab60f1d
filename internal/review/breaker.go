package review

import (
	"context"
	"sync"
	"time"
)

// Breaker wraps a Gateway with a circuit breaker:
// - Track consecutive transient failures.
// - Open the circuit after N failures; while open, fail fast with a
//   transient error instead of hammering the platform.
// - After a cooldown, let probe submissions through; M consecutive
//   successes close the circuit again.
//
// Permanent failures are the caller's problem (bad credentials, conflicting
// branch) and do not move the breaker.
type Breaker struct {
	inner Gateway
	now   func() time.Time

	mu               sync.Mutex
	state            breakerState
	failureCount     int
	successCount     int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
)

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithFailureThreshold sets how many consecutive transient failures open the
// circuit.
func WithFailureThreshold(n int) BreakerOption {
	return func(b *Breaker) { b.failureThreshold = n }
}

// WithSuccessThreshold sets how many consecutive probe successes close it
// again.
func WithSuccessThreshold(n int) BreakerOption {
	return func(b *Breaker) { b.successThreshold = n }
}

// WithCooldown sets how long the circuit stays open before probes are let
// through.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.cooldown = d }
}

// WithClock sets the clock function for testability.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

func NewBreaker(inner Gateway, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		inner:            inner,
		now:              time.Now,
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Submit(ctx context.Context, title string, edits []FileEdit) (ReviewRef, error) {
	if !b.allow() {
		return ReviewRef{}, &GatewayError{Transient: true, Message: "circuit open"}
	}

	ref, err := b.inner.Submit(ctx, title, edits)
	switch {
	case err == nil:
		b.recordSuccess()
	case IsTransient(err):
		b.recordFailure()
	}
	return ref, err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerClosed {
		return true
	}
	// Half-open: allow probes once the cooldown has elapsed.
	return b.now().Sub(b.openedAt) >= b.cooldown
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.successCount = 0
	if b.state == breakerOpen {
		// A failed probe restarts the cooldown.
		b.openedAt = b.now()
		return
	}
	if b.failureCount >= b.failureThreshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = breakerClosed
			b.failureCount = 0
			b.successCount = 0
		}
		return
	}
	b.failureCount = 0
}
