package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func limiterAt(cfg RateLimitConfig, start time.Time) (*RateLimiter, *time.Time) {
	now := start
	l := NewRateLimiter(cfg)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRateLimiterMinuteWindow(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l, now := limiterAt(RateLimitConfig{PerMinute: 3, PerDay: 100}, start)

	for i := 0; i < 3; i++ {
		d := l.CanProceed()
		assert.True(t, d.Allowed, "call %d should be allowed", i)
		l.RecordCall()
	}

	d := l.CanProceed()
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// The window opened on the first call and closes 60s later.
	*now = start.Add(61 * time.Second)
	d = l.CanProceed()
	assert.True(t, d.Allowed)
}

func TestRateLimiterDayWindowResetsAtUTCMidnight(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	l, now := limiterAt(RateLimitConfig{PerMinute: 100, PerDay: 2}, start)

	l.RecordCall()
	l.RecordCall()

	d := l.CanProceed()
	assert.False(t, d.Allowed)
	assert.LessOrEqual(t, d.RetryAfter, 10*time.Minute)

	*now = time.Date(2025, 3, 11, 0, 0, 1, 0, time.UTC)
	d = l.CanProceed()
	assert.True(t, d.Allowed)
}

func TestRateLimiterRejectedCheckConsumesNoBudget(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l, now := limiterAt(RateLimitConfig{PerMinute: 1, PerDay: 100}, start)

	l.RecordCall()
	for i := 0; i < 5; i++ {
		assert.False(t, l.CanProceed().Allowed)
	}

	// Repeated rejected checks must not have extended or refilled anything.
	*now = start.Add(time.Minute)
	assert.True(t, l.CanProceed().Allowed)
}

func TestRateLimiterRetryAfterCoversTightestWindow(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l, now := limiterAt(RateLimitConfig{PerMinute: 1, PerDay: 1}, start)

	l.RecordCall()
	d := l.CanProceed()
	assert.False(t, d.Allowed)
	// Both windows are exhausted; the wait must cover the longer (day) one.
	assert.Greater(t, d.RetryAfter, time.Minute)

	*now = start.Add(2 * time.Minute)
	d = l.CanProceed()
	assert.False(t, d.Allowed, "day budget is still spent after the minute window resets")
}
