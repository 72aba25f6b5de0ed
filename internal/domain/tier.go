package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Tier enumerates service levels.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Unlimited marks a limit without a cap.
const Unlimited = -1

// tierOrder is the authoritative ordering used for every comparison between tiers.
var tierOrder = map[Tier]int{
	TierFree:       0,
	TierBasic:      1,
	TierPro:        2,
	TierEnterprise: 3,
}

// Feature names a capability gated by tier.
type Feature string

const (
	FeatureFavorites          Feature = "favorites"
	FeatureSearch             Feature = "search"
	FeatureExport             Feature = "export"
	FeatureAPIAccess          Feature = "api_access"
	FeatureAdvancedAnalytics  Feature = "advanced_analytics"
	FeaturePrioritySupport    Feature = "priority_support"
	FeatureCustomIntegrations Feature = "custom_integrations"
)

// TierLimits describes what a tier is allowed to consume.
type TierLimits struct {
	Tier                Tier      `json:"tier"`
	MaxRequestsPerDay   int       `json:"max_requests_per_day"`
	MaxTokensPerRequest int       `json:"max_tokens_per_request"`
	MaxStorageBytes     int64     `json:"max_storage_bytes"`
	Features            []Feature `json:"features"`
}

// Unlimited reports whether the daily request cap is disabled.
func (l TierLimits) Unlimited() bool {
	return l.MaxRequestsPerDay < 0
}

const (
	mib = int64(1) << 20
	gib = int64(1) << 30
)

var tierCatalog = map[Tier]TierLimits{
	TierFree: {
		Tier:                TierFree,
		MaxRequestsPerDay:   100,
		MaxTokensPerRequest: 4096,
		MaxStorageBytes:     100 * mib,
		Features:            []Feature{FeatureFavorites, FeatureSearch},
	},
	TierBasic: {
		Tier:                TierBasic,
		MaxRequestsPerDay:   1000,
		MaxTokensPerRequest: 8192,
		MaxStorageBytes:     1 * gib,
		Features:            []Feature{FeatureFavorites, FeatureSearch, FeatureExport},
	},
	TierPro: {
		Tier:                TierPro,
		MaxRequestsPerDay:   10000,
		MaxTokensPerRequest: 32768,
		MaxStorageBytes:     10 * gib,
		Features: []Feature{
			FeatureFavorites, FeatureSearch, FeatureExport,
			FeatureAPIAccess, FeatureAdvancedAnalytics,
		},
	},
	TierEnterprise: {
		Tier:                TierEnterprise,
		MaxRequestsPerDay:   Unlimited,
		MaxTokensPerRequest: 131072,
		MaxStorageBytes:     100 * gib,
		Features: []Feature{
			FeatureFavorites, FeatureSearch, FeatureExport,
			FeatureAPIAccess, FeatureAdvancedAnalytics,
			FeaturePrioritySupport, FeatureCustomIntegrations,
		},
	},
}

// ParseTier normalizes user input into a Tier. "premium" is accepted as an alias of pro.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if t == "premium" {
		t = TierPro
	}
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Valid reports whether the tier is part of the catalog.
func (t Tier) Valid() bool {
	_, ok := tierOrder[t]
	return ok
}

// Index returns the position of the tier in the ordering, or -1 when unknown.
func (t Tier) Index() int {
	if idx, ok := tierOrder[t]; ok {
		return idx
	}
	return -1
}

// AtLeast reports whether t ranks at or above other. Unknown tiers never qualify.
func (t Tier) AtLeast(other Tier) bool {
	if !t.Valid() || !other.Valid() {
		return false
	}
	return t.Index() >= other.Index()
}

// Tiers returns every known tier in ascending order.
func Tiers() []Tier {
	out := make([]Tier, 0, len(tierOrder))
	for t := range tierOrder {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// LimitsFor returns the limits row for a tier. Unknown tiers get the free row.
func LimitsFor(t Tier) TierLimits {
	limits, ok := tierCatalog[t]
	if !ok {
		limits = tierCatalog[TierFree]
	}
	limits.Features = append([]Feature(nil), limits.Features...)
	return limits
}

// HasFeature reports whether the tier's feature set contains f.
func HasFeature(t Tier, f Feature) bool {
	limits, ok := tierCatalog[t]
	if !ok {
		return false
	}
	for _, candidate := range limits.Features {
		if candidate == f {
			return true
		}
	}
	return false
}

// ValidateUpgrade requires the target tier to rank strictly above the current one.
func ValidateUpgrade(from, to Tier) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownTier
	}
	if to.Index() <= from.Index() {
		return fmt.Errorf("%w: %s is not above %s", ErrInvalidTierChange, to, from)
	}
	return nil
}

// ValidateDowngrade requires the target tier to rank strictly below the current one.
func ValidateDowngrade(from, to Tier) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownTier
	}
	if to.Index() >= from.Index() {
		return fmt.Errorf("%w: %s is not below %s", ErrInvalidTierChange, to, from)
	}
	return nil
}
