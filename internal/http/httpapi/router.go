package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/http/handlers"
	"gatekeeper/internal/middleware"
)

// Options configures the router.
type Options struct {
	Routes         *middleware.RouteTable
	Resolver       middleware.PrincipalResolver
	Admitter       middleware.Admitter
	Logger         zerolog.Logger
	CORSOrigins    []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	AuthRatePerMin int
	RequestTimeout time.Duration
}

// NewRouter wires the middleware chain and the routes. Admin gating and quota
// admission both run before any handler.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	if opts.Routes == nil {
		opts.Routes = middleware.NewRouteTable(nil, nil)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		chimw.Timeout(opts.RequestTimeout),
		middleware.RateLimit(opts.Routes, opts.AuthRatePerMin),
		middleware.AdminGate(opts.Routes, opts.Resolver, opts.Logger),
		middleware.Admission(opts.Routes, opts.Resolver, opts.Admitter, opts.Logger),
	)

	r.Get("/healthz", app.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/refresh", app.AuthRefresh)
		r.Post("/verify-email", app.AuthVerifyEmail)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tiers", app.ListTiers)
		r.With(middleware.Require(domain.Active())).Get("/me", app.Me)
		r.With(middleware.Require(domain.Verified())).Get("/features/{feature}", app.Feature)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/bootstrap", app.AdminBootstrap)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/exemptions", app.ListExemptions)
			r.Put("/exemptions/{userID}", app.PutExemption)
			r.Delete("/exemptions/{userID}", app.DeleteExemption)
			r.Post("/users/{userID}/promote", app.PromoteUser)
			r.Post("/users/{userID}/tier", app.ChangeTier)
			r.Post("/users/{userID}/verification-token", app.IssueVerificationToken)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found")
	})

	return r
}
