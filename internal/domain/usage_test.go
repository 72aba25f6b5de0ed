package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageAdvanceFreshDay(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	rec := UsageRecord{RequestsToday: 2, RequestsResetDate: now.Add(-3 * time.Hour), TotalRequests: 40}

	next, ok := rec.Advance(3, now)
	assert.True(t, ok)
	assert.Equal(t, 3, next.RequestsToday)
	assert.Equal(t, int64(41), next.TotalRequests)
	assert.Equal(t, rec.RequestsResetDate, next.RequestsResetDate)

	rejected, ok := next.Advance(3, now)
	assert.False(t, ok)
	assert.Equal(t, next, rejected)
}

func TestUsageAdvanceUnlimited(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	rec := UsageRecord{RequestsToday: 1_000_000, RequestsResetDate: now}
	next, ok := rec.Advance(Unlimited, now)
	assert.True(t, ok)
	assert.Equal(t, 1_000_001, next.RequestsToday)
}

func TestUsageAdvanceRollover(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 1, 0, time.UTC)
	yesterday := now.Add(-2 * time.Hour)
	rec := UsageRecord{RequestsToday: 100, RequestsResetDate: yesterday, TotalRequests: 500}

	next, ok := rec.Advance(100, now)
	assert.True(t, ok)
	assert.Equal(t, 1, next.RequestsToday)
	assert.Equal(t, now, next.RequestsResetDate)
	assert.Equal(t, int64(501), next.TotalRequests)
}

func TestUsageAdvanceResetAlwaysAdmits(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	rec := UsageRecord{RequestsToday: 9999, RequestsResetDate: now.AddDate(0, 0, -3)}
	next, ok := rec.Advance(0, now)
	assert.True(t, ok)
	assert.Equal(t, 1, next.RequestsToday)
}

func TestUsageStale(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, UsageRecord{}.Stale(now))
	assert.False(t, UsageRecord{RequestsResetDate: now.Add(-11 * time.Hour)}.Stale(now))
	assert.True(t, UsageRecord{RequestsResetDate: now.Add(-13 * time.Hour)}.Stale(now))
	// a reset date ahead of the clock is not treated as a previous day
	assert.False(t, UsageRecord{RequestsResetDate: now.Add(36 * time.Hour)}.Stale(now))
}

func TestNextReset(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), NextReset(now))
}
