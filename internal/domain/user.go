package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User represents an account record held by the user store.
type User struct {
	ID         string
	Email      string
	Name       string
	Role       UserRole
	Tier       Tier
	IsActive   bool
	IsVerified bool
	Usage      UsageRecord
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Principal builds the request-scoped identity from the stored record.
func (u User) Principal() Principal {
	return Principal{
		ID:         u.ID,
		Tier:       u.Tier,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
