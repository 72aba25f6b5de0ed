package domain

import "fmt"

// Principal is the authenticated identity of a single request. It is rebuilt from the
// user store on every request so tier and verification changes apply immediately.
type Principal struct {
	ID         string
	Tier       Tier
	Role       UserRole
	IsActive   bool
	IsVerified bool
}

// IsAdmin reports whether the principal may perform administrative mutations.
func (p Principal) IsAdmin() bool {
	return p.IsActive && p.Role == UserRoleAdmin
}

// Requirement is a single check a principal must pass. Each failure maps to a distinct error.
type Requirement func(Principal) error

// Require runs every requirement in order and returns the first failure.
func (p Principal) Require(reqs ...Requirement) error {
	for _, req := range reqs {
		if err := req(p); err != nil {
			return err
		}
	}
	return nil
}

// Active fails for deactivated accounts.
func Active() Requirement {
	return func(p Principal) error {
		if !p.IsActive {
			return ErrInactiveAccount
		}
		return nil
	}
}

// Verified fails for unverified accounts. The active check runs first.
func Verified() Requirement {
	return func(p Principal) error {
		if err := Active()(p); err != nil {
			return err
		}
		if !p.IsVerified {
			return ErrUnverifiedAccount
		}
		return nil
	}
}

// TierAtLeast fails when the principal ranks below required.
func TierAtLeast(required Tier) Requirement {
	return func(p Principal) error {
		if !p.Tier.AtLeast(required) {
			return fmt.Errorf("%w: %s required", ErrInsufficientTier, required)
		}
		return nil
	}
}

// FeatureEnabled fails when the principal's tier does not include f.
func FeatureEnabled(f Feature) Requirement {
	return func(p Principal) error {
		if !HasFeature(p.Tier, f) {
			return fmt.Errorf("%w: %s", ErrMissingFeature, f)
		}
		return nil
	}
}
