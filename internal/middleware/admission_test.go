package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/adapter/memstore"
	"gatekeeper/internal/domain"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/quota"
	"gatekeeper/internal/token"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

type pipeline struct {
	codec    *token.Codec
	users    *memstore.UserStore
	resolver *identity.Resolver
	tracker  *quota.Tracker
	routes   *RouteTable
	now      time.Time
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	now := time.Now().UTC()
	clock := func() time.Time { return now }
	codec, err := token.NewCodec(token.Config{Secret: testSecret})
	require.NoError(t, err)
	codec = codec.WithClock(clock)
	users := memstore.NewUserStore()
	users.Put(domain.User{ID: "free", Tier: domain.TierFree, Role: domain.UserRoleUser, IsActive: true, IsVerified: true})
	users.Put(domain.User{ID: "boss", Tier: domain.TierEnterprise, Role: domain.UserRoleAdmin, IsActive: true, IsVerified: true})
	users.Put(domain.User{ID: "fallen", Tier: domain.TierPro, Role: domain.UserRoleAdmin, IsActive: false})
	return &pipeline{
		codec:    codec,
		users:    users,
		resolver: identity.NewResolver(codec, users, time.Second).WithClock(clock),
		tracker:  quota.NewTracker(users, quota.NewMemoryExemptions(), zerolog.Nop(), time.Second).WithClock(clock),
		routes:   NewRouteTable(nil, nil),
		now:      now,
	}
}

func (p *pipeline) bearer(t *testing.T, subject string) string {
	t.Helper()
	raw, err := p.codec.IssueAccess(subject)
	require.NoError(t, err)
	return "Bearer " + raw
}

func (p *pipeline) admission(next http.Handler) http.Handler {
	return Admission(p.routes, p.resolver, p.tracker, zerolog.Nop())(next)
}

type capture struct {
	calls     int
	principal domain.Principal
	hasPrinc  bool
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.principal, c.hasPrinc = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdmissionAdmitsAndAttachesPrincipal(t *testing.T) {
	p := newPipeline(t)
	c := &capture{}
	rec := serve(p.admission(c.handler()), http.MethodGet, "/api/v1/me", p.bearer(t, "free"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, c.hasPrinc)
	assert.Equal(t, "free", c.principal.ID)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))

	u, _ := p.users.GetByID(context.Background(), "free")
	assert.Equal(t, 1, u.Usage.RequestsToday)
}

func TestAdmissionPassesThroughWithoutCredential(t *testing.T) {
	p := newPipeline(t)
	for name, auth := range map[string]string{
		"none":         "",
		"basic scheme": "Basic Zm9vOmJhcg==",
		"garbage":      "Bearer not-a-token",
		"unknown user": p.bearer(t, "ghost"),
	} {
		t.Run(name, func(t *testing.T) {
			c := &capture{}
			rec := serve(p.admission(c.handler()), http.MethodGet, "/api/v1/me", auth)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, 1, c.calls)
			assert.False(t, c.hasPrinc)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		})
	}
}

func TestAdmissionSkipsOpenRoutes(t *testing.T) {
	p := newPipeline(t)
	c := &capture{}
	rec := serve(p.admission(c.handler()), http.MethodPost, "/auth/refresh", p.bearer(t, "free"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, c.hasPrinc)

	u, _ := p.users.GetByID(context.Background(), "free")
	assert.Zero(t, u.Usage.RequestsToday)
}

func TestAdmissionRejectsOverQuota(t *testing.T) {
	p := newPipeline(t)
	p.users.Put(domain.User{
		ID:    "free",
		Tier:  domain.TierFree,
		Role:  domain.UserRoleUser,
		Usage: domain.UsageRecord{RequestsToday: 100, RequestsResetDate: p.now, TotalRequests: 100},
	})
	c := &capture{}
	rec := serve(p.admission(c.handler()), http.MethodGet, "/api/v1/tiers", p.bearer(t, "free"))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, c.calls)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quota_exceeded", body.Error)
	assert.Contains(t, body.Message, "100")

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 86400)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	u, _ := p.users.GetByID(context.Background(), "free")
	assert.Equal(t, 100, u.Usage.RequestsToday)
}

func TestAdmissionLocalizesRejection(t *testing.T) {
	p := newPipeline(t)
	p.users.Put(domain.User{
		ID:    "free",
		Tier:  domain.TierFree,
		Usage: domain.UsageRecord{RequestsToday: 100, RequestsResetDate: p.now},
	})
	h := I18N("en", nil)(p.admission(http.NotFoundHandler()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", p.bearer(t, "free"))
	req.Header.Set("Accept-Language", "id-ID")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quota_exceeded", body.Error)
	assert.Contains(t, body.Message, "Batas harian 100")
}

func TestAdmissionUnlimitedTierHasNoLimitHeaders(t *testing.T) {
	p := newPipeline(t)
	c := &capture{}
	rec := serve(p.admission(c.handler()), http.MethodGet, "/api/v1/me", p.bearer(t, "boss"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

type failingAdmitter struct{}

func (failingAdmitter) Admit(context.Context, domain.Principal) (quota.Decision, error) {
	return quota.Decision{}, errors.New("connection refused")
}

func TestAdmissionFailsClosedWhenQuotaStoreDown(t *testing.T) {
	p := newPipeline(t)
	c := &capture{}
	h := Admission(p.routes, p.resolver, failingAdmitter{}, zerolog.Nop())(c.handler())
	rec := serve(h, http.MethodGet, "/api/v1/me", p.bearer(t, "free"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, c.calls)
	assert.Contains(t, rec.Body.String(), "quota_unavailable")
}

func TestAdmissionConcurrentAtLastSlot(t *testing.T) {
	p := newPipeline(t)
	p.users.Put(domain.User{
		ID:    "free",
		Tier:  domain.TierFree,
		Usage: domain.UsageRecord{RequestsToday: 99, RequestsResetDate: p.now},
	})
	h := p.admission(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	auth := p.bearer(t, "free")

	const n = 32
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = serve(h, http.MethodGet, "/api/v1/me", auth).Code
		}(i)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, rejected)
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 59, 30, 0, time.UTC)
	assert.Equal(t, 30, retryAfterSeconds(domain.NextReset(now), now))
	assert.Equal(t, 30, retryAfterSeconds(time.Time{}, now))
	assert.Equal(t, 1, retryAfterSeconds(now.Add(-time.Second), now))
}

type stalledUsage struct{}

func (stalledUsage) ConsumeRequest(ctx context.Context, _ string, _ int, _ time.Time) (domain.UsageRecord, bool, error) {
	<-ctx.Done()
	return domain.UsageRecord{}, false, ctx.Err()
}

func TestAdmissionSlowQuotaStoreTimesOut(t *testing.T) {
	p := newPipeline(t)
	tracker := quota.NewTracker(stalledUsage{}, quota.NewMemoryExemptions(), zerolog.Nop(), 20*time.Millisecond)
	c := &capture{}
	h := Admission(p.routes, p.resolver, tracker, zerolog.Nop())(c.handler())

	rec := serve(h, http.MethodGet, "/api/v1/me", p.bearer(t, "free"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota_unavailable")
	assert.Zero(t, c.calls)
}
