// Package ratelimit provides a sliding-window request limiter whose counter
// state lives in an injected Store.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	ErrInvalidWindow = errors.New("rate limit window must be positive")
	ErrStoreClosed   = errors.New("rate limit store closed")
)

// Store keeps per-key hit timestamps.
type Store interface {
	// Hit records a hit for key at now and returns the number of hits in
	// (now-window, now], including this one.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	// Reset forgets all hits for key.
	Reset(ctx context.Context, key string) error
	// Close releases the store.
	Close() error
}

// Limiter allows at most limit hits per key within window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter over store. A limit of zero or less disables limiting.
func New(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("nil rate limit store")
	}
	if limit > 0 && window <= 0 {
		return nil, ErrInvalidWindow
	}
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Enabled reports whether the limiter rejects anything at all.
func (l *Limiter) Enabled() bool {
	return l.limit > 0
}

// Limit returns the configured hits per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the configured window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow records a hit for key and reports whether it is within the limit.
// Rejected hits are still counted, so a caller that keeps hammering stays
// blocked until it backs off for a full window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	n, err := l.store.Hit(ctx, key, l.now(), l.window)
	if err != nil {
		return false, fmt.Errorf("rate limit %q: %w", key, err)
	}
	return n <= l.limit, nil
}

// Reset clears the history for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
