package domain

import "time"

// UsageRecord tracks request counters for a user. RequestsToday counts requests since
// the UTC calendar day of RequestsResetDate began.
type UsageRecord struct {
	RequestsToday     int       `json:"requests_today"`
	RequestsResetDate time.Time `json:"requests_reset_date"`
	TotalRequests     int64     `json:"total_requests"`
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Stale reports whether the record belongs to a day before now.
func (u UsageRecord) Stale(now time.Time) bool {
	if u.RequestsResetDate.IsZero() {
		return true
	}
	return !SameDay(u.RequestsResetDate, now) && u.RequestsResetDate.Before(now)
}

// Advance applies one request against the record. A stale record resets to a count of
// one and is always admitted. On a fresh day the request is admitted when limit is
// negative or the incremented count stays within limit; a rejected request leaves the
// record untouched.
func (u UsageRecord) Advance(limit int, now time.Time) (UsageRecord, bool) {
	if u.Stale(now) {
		return UsageRecord{
			RequestsToday:     1,
			RequestsResetDate: now,
			TotalRequests:     u.TotalRequests + 1,
		}, true
	}
	candidate := u.RequestsToday + 1
	if limit >= 0 && candidate > limit {
		return u, false
	}
	u.RequestsToday = candidate
	u.TotalRequests++
	return u, true
}

// NextReset returns the start of the UTC day following now.
func NextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
