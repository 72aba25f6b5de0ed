package handlers

import (
	"errors"
	"net/http"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/token"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// purposeError maps token failures in purpose-scoped flows. These answer 400 rather
// than 401 because the token travels in the body, not as the caller's credential.
func (a *App) purposeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		a.error(w, r, http.StatusBadRequest, "expired_token")
	case errors.Is(err, domain.ErrWrongPurpose):
		a.error(w, r, http.StatusBadRequest, "wrong_purpose")
	default:
		a.error(w, r, http.StatusBadRequest, "invalid_token")
	}
}

// AuthRefresh exchanges a refresh token for a new access and refresh pair.
func (a *App) AuthRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}
	claims, err := a.Tokens.Validate(req.RefreshToken, token.PurposeLogin)
	if err != nil {
		a.purposeError(w, r, err)
		return
	}
	if claims.Kind != token.KindRefresh {
		a.error(w, r, http.StatusBadRequest, "invalid_token")
		return
	}

	u, err := a.Users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, r, http.StatusUnauthorized, "unauthenticated")
			return
		}
		a.fail(w, r, err, "load user failed")
		return
	}
	if err := u.Principal().Require(domain.Active()); err != nil {
		a.fail(w, r, err, "")
		return
	}

	access, err := a.Tokens.IssueAccess(u.ID)
	if err != nil {
		a.fail(w, r, err, "issue access token failed")
		return
	}
	refresh, err := a.Tokens.IssueRefresh(u.ID)
	if err != nil {
		a.fail(w, r, err, "issue refresh token failed")
		return
	}
	a.json(w, http.StatusOK, tokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(a.Tokens.AccessTTL().Seconds()),
	})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// AuthVerifyEmail consumes an email_verification token and marks its subject verified.
// Replaying a token on an already verified account succeeds.
func (a *App) AuthVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !a.decode(w, r, &req) {
		return
	}
	claims, err := a.Tokens.Validate(req.Token, token.PurposeEmailVerification)
	if err != nil {
		a.purposeError(w, r, err)
		return
	}
	u, err := a.Users.SetVerified(r.Context(), claims.Subject)
	if err != nil {
		a.fail(w, r, err, "mark verified failed")
		return
	}
	a.Logger.Info().Str("user_id", u.ID).Msg("email verified")
	a.json(w, http.StatusOK, map[string]any{"verified": true, "user": newUserDTO(u)})
}
