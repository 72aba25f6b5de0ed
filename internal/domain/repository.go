package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	// GetByID returns ErrNotFound when no user has the id.
	GetByID(ctx context.Context, id string) (*User, error)
	// ConsumeRequest applies UsageRecord.Advance atomically against the stored record.
	// limit < 0 disables the cap. Returns ErrNotFound when no user has the id.
	ConsumeRequest(ctx context.Context, id string, limit int, now time.Time) (UsageRecord, bool, error)
	SetRole(ctx context.Context, id string, role UserRole) (*User, error)
	SetTier(ctx context.Context, id string, tier Tier) (*User, error)
	SetVerified(ctx context.Context, id string) (*User, error)
	CountAdmins(ctx context.Context) (int, error)
}

// ExemptionStore holds the ids of users exempt from quota enforcement. Add and Remove
// report whether the set changed.
type ExemptionStore interface {
	Add(ctx context.Context, userID string) (bool, error)
	Remove(ctx context.Context, userID string) (bool, error)
	Contains(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]string, error)
}
