package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
)

// APIKeyHeader carries the service credential on every request.
const APIKeyHeader = "X-API-Key"

// Authorize gates every request through the full authorization pipeline for
// the given route class. A nil minRole means no role floor beyond the
// session checks the route class itself implies.
func Authorize(gate *auth.Gate, routeClass auth.RouteClass, minRole *auth.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := auth.RequestInfo{
				APIKey:     r.Header.Get(APIKeyHeader),
				Origin:     httputil.RequestOrigin(r),
				RouteClass: routeClass,
				MinRole:    minRole,
			}
			if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
				req.SessionToken = cookie.Value
			}

			decision := gate.Authorize(r.Context(), req)
			if !decision.Allowed {
				writeDenial(w, decision.Reason)
				return
			}

			ctx := r.Context()
			if decision.Credential != nil {
				ctx = auth.ContextWithCredential(ctx, decision.Credential)
			}
			if decision.Claims != nil {
				ctx = auth.ContextWithClaims(ctx, *decision.Claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// External authorizes public routes: API key and origin checks only, no
// session required.
func External(gate *auth.Gate) mux.MiddlewareFunc {
	return Authorize(gate, auth.RouteClassExternal, nil)
}

// Internal authorizes staff routes with the given role floor.
func Internal(gate *auth.Gate, minRole auth.Role) mux.MiddlewareFunc {
	return Authorize(gate, auth.RouteClassInternal, &minRole)
}

// writeDenial maps a gate denial onto the envelope the client sees. Only a
// role shortfall is 403; every other denial is 401 so probing cannot
// distinguish which check failed beyond the message.
func writeDenial(w http.ResponseWriter, reason auth.Reason) {
	status := reason.HTTPStatus()
	switch reason {
	case auth.ReasonMissingCredential:
		httputil.WriteError(w, status, httputil.CodeUnauthorized, "API key required")
	case auth.ReasonInvalidCredential:
		httputil.WriteError(w, status, httputil.CodeUnauthorized, "Invalid API key")
	case auth.ReasonRouteClassDenied:
		httputil.WriteError(w, status, httputil.CodeUnauthorized, "API key is not allowed for this route")
	case auth.ReasonOriginDenied:
		httputil.WriteError(w, status, httputil.CodeUnauthorized, "Origin is not allowed")
	case auth.ReasonRoleInsufficient:
		httputil.WriteForbidden(w, "Insufficient permissions")
	default:
		httputil.WriteUnauthorized(w, "Authentication required")
	}
}
