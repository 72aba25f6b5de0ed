// Package quota enforces the per-day request cap of each tier.
package quota

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"gatekeeper/internal/domain"
)

// UsageStore applies one request against a user's usage record atomically.
type UsageStore interface {
	ConsumeRequest(ctx context.Context, id string, limit int, now time.Time) (domain.UsageRecord, bool, error)
}

// Decision is the outcome of a single admission attempt.
type Decision struct {
	Admitted bool
	Exempt   bool
	// Limit is the daily cap applied, domain.Unlimited when none was enforced.
	Limit int
	Usage domain.UsageRecord
	// ResetAt is when the daily counter next starts over.
	ResetAt time.Time
}

// Remaining returns the requests left today, or -1 when no cap applies.
func (d Decision) Remaining() int {
	if d.Limit < 0 {
		return -1
	}
	if left := d.Limit - d.Usage.RequestsToday; left > 0 {
		return left
	}
	return 0
}

// Tracker decides whether a principal may make another request today.
type Tracker struct {
	usage        UsageStore
	exemptions   domain.ExemptionStore
	logger       zerolog.Logger
	now          func() time.Time
	storeTimeout time.Duration
}

// NewTracker wires a tracker over the usage store and exemption set. Every store call
// is bounded by storeTimeout; zero leaves only the caller's deadline.
func NewTracker(usage UsageStore, exemptions domain.ExemptionStore, logger zerolog.Logger, storeTimeout time.Duration) *Tracker {
	return &Tracker{
		usage:        usage,
		exemptions:   exemptions,
		logger:       logger.With().Str("component", "quota").Logger(),
		now:          time.Now,
		storeTimeout: storeTimeout,
	}
}

// WithClock overrides the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	cp := *t
	cp.now = now
	return &cp
}

func (t *Tracker) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.storeTimeout)
}

// Admit records one request for p. A rejected request returns a *domain.QuotaError and
// leaves the counter untouched. Exempt principals are always admitted; their counters
// still move for reporting.
func (t *Tracker) Admit(ctx context.Context, p domain.Principal) (Decision, error) {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()

	now := t.now()
	exempt, err := t.exemptions.Contains(ctx, p.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("check exemption: %w", err)
	}

	limit := domain.LimitsFor(p.Tier).MaxRequestsPerDay
	if exempt {
		limit = domain.Unlimited
	}

	usage, admitted, err := t.usage.ConsumeRequest(ctx, p.ID, limit, now)
	if err != nil {
		return Decision{}, fmt.Errorf("consume request: %w", err)
	}

	d := Decision{
		Admitted: admitted,
		Exempt:   exempt,
		Limit:    limit,
		Usage:    usage,
		ResetAt:  domain.NextReset(now),
	}
	if !admitted {
		t.logger.Info().
			Str("user_id", p.ID).
			Str("tier", string(p.Tier)).
			Int("limit", limit).
			Int("requests_today", usage.RequestsToday).
			Msg("daily quota exceeded")
		return d, &domain.QuotaError{Tier: p.Tier, Limit: limit}
	}
	return d, nil
}

// AddExemption exempts userID from quota enforcement. changed is false when the user
// was already exempt.
func (t *Tracker) AddExemption(ctx context.Context, userID string) (changed bool, err error) {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()
	changed, err = t.exemptions.Add(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("add exemption: %w", err)
	}
	t.logger.Info().Str("user_id", userID).Bool("changed", changed).Msg("exemption added")
	return changed, nil
}

// RemoveExemption puts userID back under quota enforcement. changed is false when the
// user was not exempt.
func (t *Tracker) RemoveExemption(ctx context.Context, userID string) (changed bool, err error) {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()
	changed, err = t.exemptions.Remove(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("remove exemption: %w", err)
	}
	t.logger.Info().Str("user_id", userID).Bool("changed", changed).Msg("exemption removed")
	return changed, nil
}

// ListExemptions returns the exempt user ids in sorted order.
func (t *Tracker) ListExemptions(ctx context.Context) ([]string, error) {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()
	ids, err := t.exemptions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exemptions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Snapshot describes the usage of a principal without recording a request.
func (t *Tracker) Snapshot(ctx context.Context, p domain.Principal, usage domain.UsageRecord) (Decision, error) {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()
	exempt, err := t.exemptions.Contains(ctx, p.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("check exemption: %w", err)
	}
	now := t.now()
	limit := domain.LimitsFor(p.Tier).MaxRequestsPerDay
	if exempt {
		limit = domain.Unlimited
	}
	if usage.Stale(now) {
		usage.RequestsToday = 0
	}
	return Decision{Admitted: true, Exempt: exempt, Limit: limit, Usage: usage, ResetAt: domain.NextReset(now)}, nil
}
