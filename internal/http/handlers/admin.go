package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/token"
)

type bootstrapRequest struct {
	UserID string `json:"user_id"`
	Key    string `json:"key"`
}

// AdminBootstrap promotes the first administrator. It only works while no admin exists
// and the caller presents the key whose bcrypt hash is configured.
func (a *App) AdminBootstrap(w http.ResponseWriter, r *http.Request) {
	if a.BootstrapKeyHash == "" {
		a.error(w, r, http.StatusNotFound, "not_found")
		return
	}
	var req bootstrapRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(a.BootstrapKeyHash), []byte(req.Key)) != nil {
		a.Logger.Warn().Str("user_id", req.UserID).Msg("bootstrap key rejected")
		a.error(w, r, http.StatusForbidden, "forbidden")
		return
	}
	n, err := a.Users.CountAdmins(r.Context())
	if err != nil {
		a.fail(w, r, err, "count admins failed")
		return
	}
	if n > 0 {
		a.error(w, r, http.StatusConflict, "conflict")
		return
	}
	u, err := a.Users.SetRole(r.Context(), req.UserID, domain.UserRoleAdmin)
	if err != nil {
		a.fail(w, r, err, "bootstrap promote failed")
		return
	}
	a.Logger.Info().Str("user_id", u.ID).Msg("bootstrap admin promoted")
	a.json(w, http.StatusOK, newUserDTO(u))
}

// ListExemptions returns every exempt user id.
func (a *App) ListExemptions(w http.ResponseWriter, r *http.Request) {
	ids, err := a.Quota.ListExemptions(r.Context())
	if err != nil {
		a.fail(w, r, err, "list exemptions failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"user_ids": ids})
}

// PutExemption exempts {userID}. Repeating it is a no-op reported with changed=false.
func (a *App) PutExemption(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := a.Users.GetByID(r.Context(), userID); err != nil {
		a.fail(w, r, err, "load user failed")
		return
	}
	changed, err := a.Quota.AddExemption(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err, "add exemption failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"user_id": userID, "exempt": true, "changed": changed})
}

// DeleteExemption lifts the exemption of {userID}.
func (a *App) DeleteExemption(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	changed, err := a.Quota.RemoveExemption(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err, "remove exemption failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"user_id": userID, "exempt": false, "changed": changed})
}

// PromoteUser grants the admin role.
func (a *App) PromoteUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.Users.SetRole(r.Context(), chi.URLParam(r, "userID"), domain.UserRoleAdmin)
	if err != nil {
		a.fail(w, r, err, "promote failed")
		return
	}
	a.Logger.Info().Str("user_id", u.ID).Msg("user promoted")
	a.json(w, http.StatusOK, newUserDTO(u))
}

type tierChangeRequest struct {
	Tier      string `json:"tier"`
	Direction string `json:"direction"`
}

// ChangeTier moves {userID} to another tier. Direction "upgrade" requires a strictly
// higher tier and "downgrade" a strictly lower one.
func (a *App) ChangeTier(w http.ResponseWriter, r *http.Request) {
	var req tierChangeRequest
	if !a.decode(w, r, &req) {
		return
	}
	to, err := domain.ParseTier(req.Tier)
	if err != nil {
		a.fail(w, r, err, "")
		return
	}
	userID := chi.URLParam(r, "userID")
	u, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err, "load user failed")
		return
	}

	switch strings.ToLower(req.Direction) {
	case "upgrade":
		err = domain.ValidateUpgrade(u.Tier, to)
	case "downgrade":
		err = domain.ValidateDowngrade(u.Tier, to)
	default:
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	if err != nil {
		a.fail(w, r, err, "")
		return
	}

	updated, err := a.Users.SetTier(r.Context(), userID, to)
	if err != nil {
		a.fail(w, r, err, "set tier failed")
		return
	}
	a.Logger.Info().
		Str("user_id", userID).
		Str("from", string(u.Tier)).
		Str("to", string(to)).
		Msg("tier changed")
	a.json(w, http.StatusOK, newUserDTO(updated))
}

// IssueVerificationToken mints an email_verification token for {userID}. Delivery is
// left to the caller.
func (a *App) IssueVerificationToken(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := a.Users.GetByID(r.Context(), userID); err != nil {
		a.fail(w, r, err, "load user failed")
		return
	}
	raw, err := a.Tokens.IssuePurpose(userID, token.PurposeEmailVerification, a.PurposeTTL)
	if err != nil {
		a.fail(w, r, err, "issue verification token failed")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"token": raw, "purpose": token.PurposeEmailVerification})
}
