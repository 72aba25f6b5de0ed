package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/identity"
)

func serveAs(h http.Handler, p *domain.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(identity.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(domain.Verified(), domain.TierAtLeast(domain.TierPro), domain.FeatureEnabled(domain.FeatureExport))(ok)

	tests := []struct {
		name string
		p    *domain.Principal
		want int
		code string
	}{
		{"anonymous", nil, http.StatusUnauthorized, "unauthenticated"},
		{"inactive", &domain.Principal{ID: "a", Tier: domain.TierPro, IsVerified: true}, http.StatusForbidden, "inactive_account"},
		{"unverified", &domain.Principal{ID: "a", Tier: domain.TierPro, IsActive: true}, http.StatusForbidden, "unverified_account"},
		{"low tier", &domain.Principal{ID: "a", Tier: domain.TierBasic, IsActive: true, IsVerified: true}, http.StatusForbidden, "insufficient_tier"},
		{"allowed", &domain.Principal{ID: "a", Tier: domain.TierPro, IsActive: true, IsVerified: true}, http.StatusNoContent, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveAs(h, tc.p)
			assert.Equal(t, tc.want, rec.Code)
			if tc.code != "" {
				var body ErrorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tc.code, body.Error)
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}

func TestRequireMissingFeature(t *testing.T) {
	h := Require(domain.FeatureEnabled(domain.FeatureAPIAccess))(http.NotFoundHandler())
	rec := serveAs(h, &domain.Principal{ID: "a", Tier: domain.TierBasic, IsActive: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_feature")
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	assert.Equal(t, http.StatusUnauthorized, serveAs(h, nil).Code)
	assert.Equal(t, http.StatusForbidden, serveAs(h, &domain.Principal{ID: "u", Role: domain.UserRoleUser, IsActive: true}).Code)
	assert.Equal(t, http.StatusOK, serveAs(h, &domain.Principal{ID: "a", Role: domain.UserRoleAdmin, IsActive: true}).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&domain.QuotaError{Tier: domain.TierFree, Limit: 100}, http.StatusTooManyRequests, "quota_exceeded"},
		{domain.ErrExpiredToken, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("%w: user lookup: timeout", domain.ErrUnauthorized), http.StatusUnauthorized, "unauthenticated"},
		{domain.ErrPrincipalNotFound, http.StatusUnauthorized, "unauthenticated"},
		{domain.ErrInactiveAccount, http.StatusForbidden, "inactive_account"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrWrongPurpose, http.StatusBadRequest, "wrong_purpose"},
		{fmt.Errorf("promote: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: pro -> free", domain.ErrInvalidTierChange), http.StatusBadRequest, "invalid_tier_change"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		status, code := StatusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestMessageFallsBack(t *testing.T) {
	assert.Equal(t, "Authentication required.", Message("fr", "unauthenticated"))
	assert.Equal(t, "Autentikasi diperlukan.", Message("id", "unauthenticated"))
	assert.Equal(t, Message("en", "internal"), Message("en", "no_such_code"))
	assert.Equal(t, "en", LocaleFromContext(context.Background()))
}
