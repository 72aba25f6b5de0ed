package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/quota"
)

// PrincipalResolver turns a bearer credential into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, raw string) (domain.Principal, error)
}

// Admitter records one request against a principal's daily quota.
type Admitter interface {
	Admit(ctx context.Context, p domain.Principal) (quota.Decision, error)
}

// Admission resolves the caller and charges the request to its daily quota.
//
// Open routes and requests without a usable credential pass through untouched;
// whatever sits behind decides whether anonymous access is acceptable. An admitted
// request carries its principal in the context. Over-quota requests get 429 and never
// reach the handler. A failing quota store yields 503 rather than letting the request
// through uncounted.
func Admission(routes *RouteTable, resolver PrincipalResolver, admitter Admitter, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "admission").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if routes.Classify(r.URL.Path) == AccessOpen {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			p, err := resolver.Resolve(r.Context(), raw)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					logger.Warn().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("identity lookup failed")
				}
				next.ServeHTTP(w, r)
				return
			}

			decision, err := admitter.Admit(r.Context(), p)
			if err != nil {
				if errors.Is(err, domain.ErrQuotaExceeded) {
					setQuotaHeaders(w, decision)
					w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.ResetAt, time.Now())))
					WriteErr(w, r, err)
					return
				}
				logger.Error().Err(err).
					Str("user_id", p.ID).
					Str("request_id", RequestIDFromContext(r.Context())).
					Msg("quota store unavailable")
				WriteError(w, r, http.StatusServiceUnavailable, "quota_unavailable")
				return
			}

			setQuotaHeaders(w, decision)
			annotateUser(r.Context(), p.ID)
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}

func setQuotaHeaders(w http.ResponseWriter, d quota.Decision) {
	if d.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}

func retryAfterSeconds(resetAt, now time.Time) int {
	if resetAt.IsZero() {
		resetAt = domain.NextReset(now)
	}
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
