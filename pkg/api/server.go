package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/accounts"
	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/middleware"
	"github.com/alohawaii-travel/api/pkg/observability"
	"github.com/alohawaii-travel/api/pkg/sso"
	"github.com/alohawaii-travel/api/pkg/tours"
	"github.com/alohawaii-travel/api/pkg/whitelist"
)

// Deps carries everything the router needs. All fields except RateLimiter
// and Recorder are required.
type Deps struct {
	Gate           *auth.Gate
	SSOHandler     *sso.Handler
	AccountStore   accounts.Store
	TourStore      tours.Store
	WhitelistStore whitelist.Store
	Checker        *whitelist.Checker
	Recorder       audit.Recorder
	AuditReader    *audit.DBRecorder
	RateLimiter    *middleware.RateLimiter
	Logger         *observability.Logger
	Metrics        *observability.Metrics
}

// NewRouter assembles the full API surface.
//
// Route groups and their role floors:
//
//	/api/auth/*               sign-in flow, no gate (the browser arrives
//	                          here straight from the provider redirect)
//	/api/external/*           API key + origin, no session
//	/api/internal/me          ReadOnly
//	/api/internal/tours  GET  ReadOnly, writes Staff
//	/api/internal/users       Admin
//	/api/internal/whitelist   Admin
//	/api/internal/audit       Admin
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(httputil.RequestIDMiddleware)
	r.Use(httputil.LoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(httputil.RecoveryMiddleware(deps.Logger))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware)
	}

	r.NotFoundHandler = notFoundHandler(deps.Logger, deps.Metrics)
	r.MethodNotAllowedHandler = methodNotAllowedHandler(deps.Logger, deps.Metrics)

	tourHandlers := NewToursHandlers(deps.TourStore, deps.Logger)
	accountHandlers := NewAccountHandlers(deps.AccountStore, deps.Recorder, deps.Logger)
	whitelistHandlers := NewWhitelistHandlers(deps.WhitelistStore, deps.Checker, deps.Recorder, deps.Logger)

	if deps.SSOHandler != nil {
		deps.SSOHandler.RegisterRoutes(r)
	}

	external := r.PathPrefix("/api/external").Subrouter()
	external.Use(middleware.External(deps.Gate))
	tourHandlers.RegisterExternalRoutes(external)

	readOnly := r.PathPrefix("/api/internal").Subrouter()
	readOnly.Use(middleware.Internal(deps.Gate, auth.RoleReadOnly))
	accountHandlers.RegisterMeRoutes(readOnly)
	tourHandlers.RegisterReadRoutes(readOnly)

	staff := r.PathPrefix("/api/internal").Subrouter()
	staff.Use(middleware.Internal(deps.Gate, auth.RoleStaff))
	tourHandlers.RegisterWriteRoutes(staff)

	admin := r.PathPrefix("/api/internal").Subrouter()
	admin.Use(middleware.Internal(deps.Gate, auth.RoleAdmin))
	accountHandlers.RegisterAdminRoutes(admin)
	whitelistHandlers.RegisterRoutes(admin)
	if deps.AuditReader != nil {
		NewAuditHandlers(deps.AuditReader, deps.Logger).RegisterRoutes(admin)
	}

	return r
}

// NewHealthRouter assembles the sidecar router for probes and metrics,
// served on a separate port so it is never exposed publicly.
func NewHealthRouter(checker *observability.HealthChecker, metrics *observability.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

func notFoundHandler(logger *observability.Logger, metrics *observability.Metrics) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Route not found")
	})
	return httputil.RequestIDMiddleware(httputil.LoggingMiddleware(logger, metrics)(h))
}

func methodNotAllowedHandler(logger *observability.Logger, metrics *observability.Metrics) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, httputil.CodeBadRequest, "Method not allowed")
	})
	return httputil.RequestIDMiddleware(httputil.LoggingMiddleware(logger, metrics)(h))
}
