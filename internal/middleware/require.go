package middleware

import (
	"net/http"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/identity"
)

// Require rejects requests whose principal fails any of reqs. A request that reached
// it without an admitted principal gets 401.
func Require(reqs ...domain.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.FromContext(r.Context())
			if !ok {
				WriteError(w, r, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if err := p.Require(reqs...); err != nil {
				WriteErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits only active administrators, including on read-only routes.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := identity.FromContext(r.Context())
		if !ok {
			WriteError(w, r, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if !p.IsAdmin() {
			WriteError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
