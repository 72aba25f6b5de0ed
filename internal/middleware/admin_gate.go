package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"gatekeeper/internal/identity"
)

var mutatingMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// AdminGate blocks state-mutating verbs on protected routes unless the caller is an
// active administrator. Reads, open and public routes pass through. The gate resolves
// the caller itself and does not depend on Admission having run.
func AdminGate(routes *RouteTable, resolver PrincipalResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "admin_gate").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, mutating := mutatingMethods[r.Method]; !mutating {
				next.ServeHTTP(w, r)
				return
			}
			if routes.Classify(r.URL.Path) != AccessProtected {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := BearerToken(r)
			if !ok {
				WriteError(w, r, http.StatusUnauthorized, "unauthenticated")
				return
			}
			p, err := resolver.Resolve(r.Context(), raw)
			if err != nil {
				if identity.IsUnauthenticated(err) {
					WriteError(w, r, http.StatusUnauthorized, "unauthenticated")
					return
				}
				logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("resolve caller")
				WriteErr(w, r, err)
				return
			}
			if !p.IsAdmin() {
				logger.Info().
					Str("user_id", p.ID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("mutation denied")
				WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
