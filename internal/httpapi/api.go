// Package httpapi exposes the trust core over HTTP: the auth endpoints, the
// audit read API, and the operational surface.
package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"stridelog/internal/account"
	"stridelog/internal/audit"
	"stridelog/internal/obs"
	"stridelog/internal/token"
)

// Options wires the API's collaborators.
type Options struct {
	Tokens   *token.Manager
	Accounts *account.Service
	Audit    *audit.Logger
	Metrics  *obs.Collector
	Logger   *zerolog.Logger
	Version  string

	// DB is optional; when set /readyz pings it.
	DB *sql.DB
}

// API is the HTTP surface of the trust core.
type API struct {
	tokens   *token.Manager
	accounts *account.Service
	audit    *audit.Logger
	metrics  *obs.Collector
	log      zerolog.Logger
	version  string
	db       *sql.DB
}

// New constructs the API.
func New(opts Options) *API {
	logger := obs.Logger()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &API{
		tokens:   opts.Tokens,
		accounts: opts.Accounts,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		log:      *logger,
		version:  opts.Version,
		db:       opts.DB,
	}
}

// Handler builds the router. All /v1 routes except the credential exchange
// endpoints require a valid access token.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(a.withCorrelationID)
	r.Use(SecurityHeaders)
	r.Use(a.logRequests)
	r.Use(obs.Instrument)

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.Post("/logout", a.handleLogout)
		})
	})

	r.Route("/v1/audit", func(r chi.Router) {
		r.Use(a.withAuth)
		r.Get("/events", a.handleAuditEvents)
		r.Get("/statistics", a.handleAuditStatistics)
	})

	r.Route("/v1/security", func(r chi.Router) {
		r.Use(a.withAuth)
		r.Get("/metrics", a.handleSecurityMetrics)
		r.Post("/metrics/reset", a.handleSecurityMetricsReset)
	})

	return r
}
