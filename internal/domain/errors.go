package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("expired token")
	ErrWrongPurpose      = errors.New("token purpose mismatch")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrInactiveAccount   = errors.New("account inactive")
	ErrUnverifiedAccount = errors.New("account not verified")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrInsufficientTier  = errors.New("insufficient tier")
	ErrMissingFeature    = errors.New("feature not available for tier")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTierChange = errors.New("invalid tier change")
	ErrUnknownTier       = errors.New("unknown tier")
)

// QuotaError is returned when a principal has used up the daily cap of its tier.
type QuotaError struct {
	Tier  Tier
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s tier allows %d requests per day", e.Tier, e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
