// Package breaker implements a generic, named circuit breaker state
// machine (§4.2) guarding calls to fragile external dependencies. It is
// grounded on original_source/apps/backend/src/core/circuit_breaker.py,
// re-expressed with a mutex-guarded struct and a scoped Guard instead of
// an async context manager (per the spec's Design Notes).
package breaker

import (
	"context"
	"sync"
	"time"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Kinder lets a handler error opt out of counting against a breaker
// (the "excluded_error_kinds" mechanism) without the breaker needing to
// know anything about handler-specific error types.
type Kinder interface {
	BreakerKind() string
}

// KindOf extracts the breaker-relevant kind of an error, or "" if the
// error does not implement Kinder.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if k, ok := err.(Kinder); ok {
		return k.BreakerKind()
	}
	return ""
}

// Config is immutable after construction.
type Config struct {
	FailureThreshold   int
	SuccessThreshold   int
	TimeoutSeconds     float64
	ExcludedErrorKinds map[string]struct{}
}

// DefaultConfig matches the documented defaults (§3).
func DefaultConfig(name string) Config {
	return Config{
		FailureThreshold:   5,
		SuccessThreshold:   2,
		TimeoutSeconds:     60,
		ExcludedErrorKinds: map[string]struct{}{},
	}
}

func (c Config) excludes(kind string) bool {
	if kind == "" || c.ExcludedErrorKinds == nil {
		return false
	}
	_, ok := c.ExcludedErrorKinds[kind]
	return ok
}

// Breaker is a single named guard. All state mutations are serialised by mu.
type Breaker struct {
	name   string
	config Config

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
}

func New(name string, cfg Config) *Breaker {
	now := time.Now()
	return &Breaker{
		name:            name,
		config:          cfg,
		state:           StateClosed,
		lastStateChange: now,
	}
}

func (b *Breaker) Name() string { return b.name }

// checkStateLocked transitions open -> half_open once the timeout has elapsed.
// Must be called with mu held.
func (b *Breaker) checkStateLocked(now time.Time) {
	if b.state != StateOpen {
		return
	}
	if b.lastFailureTime.IsZero() {
		return
	}
	if now.Sub(b.lastFailureTime).Seconds() >= b.config.TimeoutSeconds {
		b.state = StateHalfOpen
		b.successCount = 0
		b.lastStateChange = now
	}
}

// retryAfterLocked computes the approximate seconds remaining before the
// breaker becomes eligible for half-open. Must be called with mu held.
func (b *Breaker) retryAfterLocked(now time.Time) float64 {
	if b.lastFailureTime.IsZero() {
		return b.config.TimeoutSeconds
	}
	remaining := b.config.TimeoutSeconds - now.Sub(b.lastFailureTime).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Allow checks whether a call may proceed right now, returning
// ErrCircuitOpen if not. It performs the open->half_open timeout check as
// a side effect, matching the Python original's _check_state-then-call
// sequencing.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.checkStateLocked(now)
	if b.state == StateOpen {
		return &ErrCircuitOpen{Name: b.name, RetryAfter: b.retryAfterLocked(now)}
	}
	return nil
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			b.lastStateChange = now
		}
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure records a failed call outcome. Errors whose kind is in
// ExcludedErrorKinds neither increment failure_count nor demote state.
func (b *Breaker) RecordFailure(err error) {
	if b.config.excludes(KindOf(err)) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.failureCount++
	b.lastFailureTime = now

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.lastStateChange = now
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = StateOpen
			b.lastStateChange = now
		}
	}
}

// Call executes f under breaker protection: it checks Allow, runs f, and
// records the outcome. Excluded errors still propagate to the caller.
func (b *Breaker) Call(ctx context.Context, f func(ctx context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := f(ctx)
	if err != nil {
		b.RecordFailure(err)
		return err
	}
	b.RecordSuccess()
	return nil
}

// Reset forces the breaker back to closed and zeros its counters. Used by
// the admin surface's manual reset operation.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
	b.lastStateChange = time.Now()
}

// Status is a snapshot suitable for the admin surface.
type Status struct {
	Name             string
	State            State
	FailureCount     int
	SuccessCount     int
	RetryAfterSecs   *float64
	LastStateChange  time.Time
	LastFailureTime  *time.Time
}

// Status reads the breaker's state without changing it; the open ->
// half_open timeout check happens in Allow.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()

	s := Status{
		Name:            b.name,
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastStateChange: b.lastStateChange,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		s.LastFailureTime = &t
	}
	if b.state == StateOpen {
		ra := b.retryAfterLocked(now)
		s.RetryAfterSecs = &ra
	}
	return s
}
