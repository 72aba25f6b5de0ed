// Package identity turns bearer tokens into request principals.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/token"
)

// TokenVerifier is satisfied by *token.Codec.
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, bool)
}

// UserReader is the slice of the user store the resolver needs.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Resolver combines token verification with a fresh user-store lookup.
type Resolver struct {
	tokens        TokenVerifier
	users         UserReader
	lookupTimeout time.Duration
	now           func() time.Time
}

// NewResolver builds a Resolver. lookupTimeout <= 0 leaves the caller's context unbounded.
func NewResolver(tokens TokenVerifier, users UserReader, lookupTimeout time.Duration) *Resolver {
	return &Resolver{
		tokens:        tokens,
		users:         users,
		lookupTimeout: lookupTimeout,
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

// Resolve authenticates raw and returns the principal built from the stored record.
// Every failure means unauthenticated; the error says which step failed.
func (r *Resolver) Resolve(ctx context.Context, raw string) (domain.Principal, error) {
	claims, ok := r.tokens.Verify(raw)
	if !ok {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if claims.Expired(r.now()) {
		return domain.Principal{}, domain.ErrExpiredToken
	}

	lookupCtx := ctx
	if r.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.lookupTimeout)
		defer cancel()
	}
	user, err := r.users.GetByID(lookupCtx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, domain.ErrPrincipalNotFound
		}
		return domain.Principal{}, fmt.Errorf("%w: user lookup: %v", domain.ErrUnauthorized, err)
	}
	if user == nil {
		return domain.Principal{}, domain.ErrPrincipalNotFound
	}
	return user.Principal(), nil
}

// IsUnauthenticated reports whether err from Resolve means the caller has no usable credential.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, domain.ErrInvalidToken) ||
		errors.Is(err, domain.ErrExpiredToken) ||
		errors.Is(err, domain.ErrPrincipalNotFound) ||
		errors.Is(err, domain.ErrUnauthorized)
}
