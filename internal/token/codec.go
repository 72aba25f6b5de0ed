// Package token issues and verifies the signed bearer tokens carried in the
// Authorization header.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gatekeeper/internal/domain"
)

// Purpose restricts a token to one action. The zero value is a login token.
type Purpose string

const (
	PurposeLogin             Purpose = ""
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// Kind separates short-lived access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const minSecretBytes = 32

// ErrMisconfigured is returned by NewCodec for an unusable secret or algorithm.
var ErrMisconfigured = errors.New("token codec misconfigured")

// Claims carries identity, purpose and expiry only. Authorization data such as tier is
// always read from the user store.
type Claims struct {
	Purpose Purpose        `json:"purpose,omitempty"`
	Kind    Kind           `json:"kind,omitempty"`
	Extra   map[string]any `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the token is no longer valid at now. A token without exp
// is treated as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// CheckPurpose fails with domain.ErrWrongPurpose unless the token was issued for want.
func (c *Claims) CheckPurpose(want Purpose) error {
	if c.Purpose != want {
		return fmt.Errorf("%w: got %q want %q", domain.ErrWrongPurpose, c.Purpose, want)
	}
	return nil
}

// Config holds signing parameters.
type Config struct {
	Secret     string
	Algorithm  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Codec signs and parses tokens. It is safe for concurrent use.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

var supportedMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// NewCodec validates cfg. Any error here must stop the process from starting.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrMisconfigured, minSecretBytes)
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = "HS256"
	}
	method, ok := supportedMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMisconfigured, alg)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 14 * 24 * time.Hour
	}
	return &Codec{
		secret:     []byte(cfg.Secret),
		method:     method,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the codec reading time from now. Used by tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// AccessTTL returns the default access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// Issue signs claims with exp = now + lifetime.
func (c *Codec) Issue(claims Claims, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		return "", fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	if claims.Subject == "" {
		return "", errors.New("token subject is required")
	}
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueAccess issues a login access token with the default lifetime.
func (c *Codec) IssueAccess(subject string) (string, error) {
	return c.Issue(Claims{Kind: KindAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}, c.accessTTL)
}

// IssueRefresh issues a login refresh token with the default lifetime.
func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.Issue(Claims{Kind: KindRefresh, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}, c.refreshTTL)
}

// IssuePurpose issues a single-purpose token such as an email verification link.
func (c *Codec) IssuePurpose(subject string, purpose Purpose, lifetime time.Duration) (string, error) {
	return c.Issue(Claims{Purpose: purpose, Kind: KindAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}, lifetime)
}

// Verify checks signature and structure. It does not check expiry: callers compare
// Claims.Expired against their clock.
// Every failure is reported as ok == false.
func (c *Codec) Verify(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Subject == "" {
		return nil, false
	}
	return claims, true
}

// Validate runs the full check for a purpose flow: signature, expiry, then purpose.
func (c *Codec) Validate(raw string, purpose Purpose) (*Claims, error) {
	claims, ok := c.Verify(raw)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	if claims.Expired(c.now()) {
		return nil, domain.ErrExpiredToken
	}
	if err := claims.CheckPurpose(purpose); err != nil {
		return nil, err
	}
	return claims, nil
}
