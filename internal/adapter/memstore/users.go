// Package memstore keeps users in process memory. It backs local development and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"gatekeeper/internal/domain"
)

// UserStore implements domain.UserRepository over a mutex-guarded map. Every mutation
// happens under the lock, so ConsumeRequest is an atomic read-modify-write.
type UserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
	now   func() time.Time
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User), now: time.Now}
}

// Put inserts or replaces a user.
func (s *UserStore) Put(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
}

// GetByID returns a copy of the stored user.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// ConsumeRequest advances the usage record of id under the store lock.
func (s *UserStore) ConsumeRequest(ctx context.Context, id string, limit int, now time.Time) (domain.UsageRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.UsageRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.UsageRecord{}, false, domain.ErrNotFound
	}
	next, admitted := u.Usage.Advance(limit, now)
	if admitted {
		u.Usage = next
		u.UpdatedAt = now
		s.users[id] = u
	}
	return next, admitted, nil
}

// SetRole changes the role of id.
func (s *UserStore) SetRole(ctx context.Context, id string, role domain.UserRole) (*domain.User, error) {
	return s.update(ctx, id, func(u *domain.User) { u.Role = role })
}

// SetTier changes the tier of id.
func (s *UserStore) SetTier(ctx context.Context, id string, tier domain.Tier) (*domain.User, error) {
	return s.update(ctx, id, func(u *domain.User) { u.Tier = tier })
}

// SetVerified marks id as verified.
func (s *UserStore) SetVerified(ctx context.Context, id string) (*domain.User, error) {
	return s.update(ctx, id, func(u *domain.User) { u.IsVerified = true })
}

// CountAdmins returns the number of users holding the admin role.
func (s *UserStore) CountAdmins(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.IsAdmin() {
			n++
		}
	}
	return n, nil
}

// Upsert mirrors the Postgres repository: profile fields are replaced, usage and
// creation time survive.
func (s *UserStore) Upsert(ctx context.Context, u domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.Role == "" {
		u.Role = domain.UserRoleUser
	}
	if u.Tier == "" {
		u.Tier = domain.TierFree
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if prev, ok := s.users[u.ID]; ok {
		u.Usage = prev.Usage
		u.CreatedAt = prev.CreatedAt
	} else {
		u.Usage = domain.UsageRecord{}
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	return &u, nil
}

func (s *UserStore) update(ctx context.Context, id string, fn func(*domain.User)) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

var _ domain.UserRepository = (*UserStore)(nil)
