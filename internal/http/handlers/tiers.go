package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/domain"
)

type tierDTO struct {
	Tier                string   `json:"tier"`
	Rank                int      `json:"rank"`
	MaxRequestsPerDay   int      `json:"max_requests_per_day"`
	MaxTokensPerRequest int      `json:"max_tokens_per_request"`
	MaxStorageBytes     int64    `json:"max_storage_bytes"`
	Features            []string `json:"features"`
}

func newTierDTO(l domain.TierLimits) tierDTO {
	features := make([]string, 0, len(l.Features))
	for _, f := range l.Features {
		features = append(features, string(f))
	}
	return tierDTO{
		Tier:                string(l.Tier),
		Rank:                l.Tier.Index(),
		MaxRequestsPerDay:   l.MaxRequestsPerDay,
		MaxTokensPerRequest: l.MaxTokensPerRequest,
		MaxStorageBytes:     l.MaxStorageBytes,
		Features:            features,
	}
}

// ListTiers returns the catalog in ascending order.
func (a *App) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers := domain.Tiers()
	out := make([]tierDTO, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, newTierDTO(domain.LimitsFor(t)))
	}
	a.json(w, http.StatusOK, map[string]any{"tiers": out})
}

type usageDTO struct {
	RequestsToday int       `json:"requests_today"`
	Remaining     int       `json:"remaining"`
	TotalRequests int64     `json:"total_requests"`
	ResetAt       time.Time `json:"reset_at"`
	Exempt        bool      `json:"exempt"`
}

type meResponse struct {
	User   userDTO  `json:"user"`
	Limits tierDTO  `json:"limits"`
	Usage  usageDTO `json:"usage"`
}

// Me describes the caller, its tier limits and today's usage. The request that reads
// it has already been counted.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	u, err := a.Users.GetByID(r.Context(), p.ID)
	if err != nil {
		a.fail(w, r, err, "load user failed")
		return
	}
	d, err := a.Quota.Snapshot(r.Context(), u.Principal(), u.Usage)
	if err != nil {
		a.fail(w, r, err, "quota snapshot failed")
		return
	}
	a.json(w, http.StatusOK, meResponse{
		User:   newUserDTO(u),
		Limits: newTierDTO(domain.LimitsFor(u.Tier)),
		Usage: usageDTO{
			RequestsToday: d.Usage.RequestsToday,
			Remaining:     d.Remaining(),
			TotalRequests: d.Usage.TotalRequests,
			ResetAt:       d.ResetAt,
			Exempt:        d.Exempt,
		},
	})
}

// Feature reports whether the caller's tier includes {feature}. Unknown feature names
// are 404; features outside the tier are rejected with missing_feature.
func (a *App) Feature(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	f := domain.Feature(chi.URLParam(r, "feature"))
	if !domain.HasFeature(domain.TierEnterprise, f) {
		a.error(w, r, http.StatusNotFound, "not_found")
		return
	}
	if err := p.Require(domain.FeatureEnabled(f)); err != nil {
		a.fail(w, r, err, "feature check failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"feature": f, "enabled": true, "tier": p.Tier})
}
