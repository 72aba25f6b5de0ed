package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipalRequire(t *testing.T) {
	active := Principal{ID: "u1", Tier: TierBasic, Role: UserRoleUser, IsActive: true, IsVerified: true}

	tests := []struct {
		name string
		p    Principal
		reqs []Requirement
		want error
	}{
		{"no requirements", Principal{}, nil, nil},
		{"active passes", active, []Requirement{Active()}, nil},
		{"inactive fails", Principal{IsActive: false}, []Requirement{Active()}, ErrInactiveAccount},
		{"verified checks active first", Principal{IsActive: false, IsVerified: true}, []Requirement{Verified()}, ErrInactiveAccount},
		{"unverified fails", Principal{IsActive: true}, []Requirement{Verified()}, ErrUnverifiedAccount},
		{"tier at least passes", active, []Requirement{TierAtLeast(TierBasic)}, nil},
		{"tier below fails", active, []Requirement{TierAtLeast(TierPro)}, ErrInsufficientTier},
		{"feature present", active, []Requirement{FeatureEnabled(FeatureExport)}, nil},
		{"feature missing", active, []Requirement{FeatureEnabled(FeatureAPIAccess)}, ErrMissingFeature},
		{"first failure wins", Principal{Tier: TierFree}, []Requirement{TierAtLeast(TierPro), Active()}, ErrInsufficientTier},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Require(tc.reqs...)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v want %v", err, tc.want)
		})
	}
}

func TestPrincipalIsAdmin(t *testing.T) {
	assert.True(t, Principal{Role: UserRoleAdmin, IsActive: true}.IsAdmin())
	assert.False(t, Principal{Role: UserRoleAdmin, IsActive: false}.IsAdmin())
	assert.False(t, Principal{Role: UserRoleUser, IsActive: true, Tier: TierEnterprise}.IsAdmin())
}

func TestUserPrincipal(t *testing.T) {
	u := User{ID: "abc", Role: UserRoleAdmin, Tier: TierPro, IsActive: true, IsVerified: false}
	p := u.Principal()
	assert.Equal(t, Principal{ID: "abc", Role: UserRoleAdmin, Tier: TierPro, IsActive: true}, p)
}
