package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/middleware"
	"gatekeeper/internal/quota"
	"gatekeeper/internal/token"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Users      domain.UserRepository
	Tokens     *token.Codec
	Quota      *quota.Tracker
	Logger     zerolog.Logger
	PurposeTTL time.Duration
	// BootstrapKeyHash is a bcrypt hash; empty disables POST /admin/bootstrap.
	BootstrapKeyHash string
	Checks           map[string]HealthCheck
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string) {
	middleware.WriteError(w, r, status, code)
}

// fail writes the rejection for err, logging anything that maps to a 5xx.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if status, _ := middleware.StatusFor(err); status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg(msg)
	}
	middleware.WriteErr(w, r, err)
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return false
	}
	return true
}

func (a *App) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		a.error(w, r, http.StatusUnauthorized, "unauthenticated")
	}
	return p, ok
}

type userDTO struct {
	ID         string `json:"id"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role"`
	Tier       string `json:"tier"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
}

func newUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		Tier:       string(u.Tier),
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
	}
}
