package translation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMinInterval = 5 * time.Second
	DefaultCooldown    = time.Hour
)

// RateLimiter spaces outbound calls to the free provider and holds the
// throttle flag set after the provider reports rate-limit exhaustion.
type RateLimiter struct {
	mu                  sync.Mutex
	spacing             *rate.Limiter
	minInterval         time.Duration
	cooldown            time.Duration
	now                 func() time.Time
	lastRequestAt       time.Time
	throttledUntil      time.Time
	consecutiveFailures int
}

// LimiterState is a point-in-time copy of the limiter fields.
type LimiterState struct {
	LastRequestAt       time.Time     `json:"last_request_at"`
	MinInterval         time.Duration `json:"min_interval"`
	Throttled           bool          `json:"throttled"`
	ThrottledUntil      time.Time     `json:"throttled_until"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// NewRateLimiter builds a limiter. A nil now uses time.Now; a zero
// minInterval disables spacing.
func NewRateLimiter(minInterval, cooldown time.Duration, now func() time.Time) *RateLimiter {
	if minInterval < 0 {
		minInterval = DefaultMinInterval
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &RateLimiter{
		spacing:     rate.NewLimiter(limit, 1),
		minInterval: minInterval,
		cooldown:    cooldown,
		now:         now,
	}
}

// Wait blocks until the next request may go out, then records it.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if err := l.spacing.Wait(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.lastRequestAt = l.now()
	l.mu.Unlock()
	return nil
}

// Throttled reports whether the throttle flag is set. The flag clears itself
// once the cooldown has elapsed.
func (l *RateLimiter) Throttled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.throttledLocked()
}

func (l *RateLimiter) throttledLocked() bool {
	if l.throttledUntil.IsZero() {
		return false
	}
	if !l.now().Before(l.throttledUntil) {
		l.throttledUntil = time.Time{}
		return false
	}
	return true
}

// MarkRateLimited sets the throttle flag for one cooldown window.
func (l *RateLimiter) MarkRateLimited() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveFailures++
	l.throttledUntil = l.now().Add(l.cooldown)
	return l.throttledUntil
}

func (l *RateLimiter) RecordSuccess() {
	l.mu.Lock()
	l.consecutiveFailures = 0
	l.mu.Unlock()
}

// RecordFailure counts a non rate-limit failure. The counter is only reported.
func (l *RateLimiter) RecordFailure() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveFailures++
	return l.consecutiveFailures
}

func (l *RateLimiter) State() LimiterState {
	l.mu.Lock()
	defer l.mu.Unlock()
	throttled := l.throttledLocked()
	return LimiterState{
		LastRequestAt:       l.lastRequestAt,
		MinInterval:         l.minInterval,
		Throttled:           throttled,
		ThrottledUntil:      l.throttledUntil,
		ConsecutiveFailures: l.consecutiveFailures,
	}
}
