package exam

import (
	"sync"
	"time"
)

// RateLimitConfig holds call budgets for the generation service. Both limits
// should sit below the provider's advertised ceiling to leave a safety margin.
type RateLimitConfig struct {
	PerMinute int
	PerDay    int
}

// DefaultRateLimitConfig returns conservative production defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerMinute: 12,
		PerDay:    1200,
	}
}

// Decision is the result of a CanProceed check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter tracks per-minute and per-day call budgets with two lazy fixed
// windows: no background timer, boundaries are recomputed on check. The
// minute window opens on the first recorded call and closes 60s later; the
// day window resets at the next UTC midnight.
//
// The mutex makes check and record individually safe for concurrent callers.
// Callers must invoke RecordCall only after a call is confirmed dispatched,
// so a rejected CanProceed never consumes budget.
type RateLimiter struct {
	mu  sync.Mutex
	cfg RateLimitConfig

	minuteCount int
	minuteReset time.Time
	dayCount    int
	dayReset    time.Time

	now func() time.Time // overridable in tests
}

// NewRateLimiter builds a limiter with the given budgets. Non-positive limits
// fall back to defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = def.PerMinute
	}
	if cfg.PerDay <= 0 {
		cfg.PerDay = def.PerDay
	}
	return &RateLimiter{cfg: cfg, now: time.Now}
}

// CanProceed reports whether another call fits the current windows. When not
// allowed, RetryAfter is the wait until the tightest exhausted window resets.
func (l *RateLimiter) CanProceed() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollWindows(now)

	var wait time.Duration
	if l.minuteCount >= l.cfg.PerMinute {
		wait = l.minuteReset.Sub(now)
	}
	if l.dayCount >= l.cfg.PerDay {
		if d := l.dayReset.Sub(now); d > wait {
			wait = d
		}
	}
	if wait > 0 {
		return Decision{Allowed: false, RetryAfter: wait}
	}
	return Decision{Allowed: true}
}

// RecordCall consumes one unit of both budgets. Call only after the external
// request has actually been dispatched.
func (l *RateLimiter) RecordCall() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollWindows(now)

	if l.minuteCount == 0 {
		l.minuteReset = now.Add(time.Minute)
	}
	l.minuteCount++

	if l.dayCount == 0 {
		l.dayReset = nextUTCMidnight(now)
	}
	l.dayCount++
}

// rollWindows zeroes any window whose reset time has passed. Caller holds mu.
func (l *RateLimiter) rollWindows(now time.Time) {
	if l.minuteCount > 0 && !now.Before(l.minuteReset) {
		l.minuteCount = 0
	}
	if l.dayCount > 0 && !now.Before(l.dayReset) {
		l.dayCount = 0
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
