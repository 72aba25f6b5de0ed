package memstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/domain"
)

func TestGetByIDReturnsCopy(t *testing.T) {
	s := NewUserStore()
	s.Put(domain.User{ID: "u1", Tier: domain.TierFree})

	u, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	u.Tier = domain.TierEnterprise

	again, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, again.Tier)

	_, err = s.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	s := NewUserStore()
	s.Put(domain.User{ID: "u1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = s.ConsumeRequest(ctx, "u1", 10, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumeRequestRejectionLeavesRecord(t *testing.T) {
	now := time.Date(2024, 3, 3, 3, 0, 0, 0, time.UTC)
	s := NewUserStore()
	s.Put(domain.User{ID: "u1", Usage: domain.UsageRecord{RequestsToday: 5, RequestsResetDate: now, TotalRequests: 5}})

	usage, admitted, err := s.ConsumeRequest(context.Background(), "u1", 5, now)
	require.NoError(t, err)
	assert.False(t, admitted)
	assert.Equal(t, 5, usage.RequestsToday)

	u, _ := s.GetByID(context.Background(), "u1")
	assert.Equal(t, int64(5), u.Usage.TotalRequests)
}

func TestMutations(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	s.Put(domain.User{ID: "u1", Role: domain.UserRoleUser, IsActive: true})
	s.Put(domain.User{ID: "u2", Role: domain.UserRoleAdmin, IsActive: true})

	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, err := s.SetRole(ctx, "u1", domain.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, u.Role)
	n, _ = s.CountAdmins(ctx)
	assert.Equal(t, 2, n)

	u, err = s.SetTier(ctx, "u1", domain.TierPro)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPro, u.Tier)

	u, err = s.SetVerified(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	_, err = s.SetTier(ctx, "ghost", domain.TierPro)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadSeed(t *testing.T) {
	s := NewUserStore()
	n, err := LoadSeed(s, strings.NewReader(`[
		{"id": "root", "role": "admin", "tier": "enterprise", "is_verified": true},
		{"id": "p", "tier": "premium"},
		{"id": "off", "is_active": false}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	root, _ := s.GetByID(context.Background(), "root")
	assert.True(t, root.IsAdmin())
	assert.Equal(t, domain.TierEnterprise, root.Tier)
	assert.True(t, root.IsActive)

	p, _ := s.GetByID(context.Background(), "p")
	assert.Equal(t, domain.TierPro, p.Tier)
	assert.Equal(t, domain.UserRoleUser, p.Role)

	off, _ := s.GetByID(context.Background(), "off")
	assert.False(t, off.IsActive)
	assert.Equal(t, domain.TierFree, off.Tier)
}

func TestLoadSeedRejectsBadRows(t *testing.T) {
	for name, body := range map[string]string{
		"missing id":   `[{"tier": "free"}]`,
		"unknown tier": `[{"id": "a", "tier": "gold"}]`,
		"unknown role": `[{"id": "a", "role": "root"}]`,
		"not json":     `{`,
	} {
		_, err := LoadSeed(NewUserStore(), strings.NewReader(body))
		assert.Error(t, err, name)
	}
}

func TestUpsertKeepsUsage(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.Put(domain.User{ID: "u", Email: "old@example.com", Tier: domain.TierFree, Usage: domain.UsageRecord{RequestsToday: 7, RequestsResetDate: day, TotalRequests: 70}})

	u, err := s.Upsert(ctx, domain.User{ID: "u", Email: "new@example.com", Tier: domain.TierPro})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, domain.UserRoleUser, u.Role)
	assert.Equal(t, 7, u.Usage.RequestsToday)
	assert.Equal(t, int64(70), u.Usage.TotalRequests)

	fresh, err := s.Upsert(ctx, domain.User{ID: "v"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, fresh.Tier)
	assert.Zero(t, fresh.Usage.RequestsToday)
}
