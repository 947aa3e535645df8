package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alohawaii-travel/api/pkg/observability"
)

// Reason is the machine-readable cause attached to every gate decision.
type Reason string

const (
	ReasonAllowed           Reason = "allowed"
	ReasonMissingCredential Reason = "missing_credential"
	ReasonInvalidCredential Reason = "invalid_credential"
	ReasonRouteClassDenied  Reason = "route_class_denied"
	ReasonOriginDenied      Reason = "origin_denied"
	ReasonSessionMissing    Reason = "session_missing"
	ReasonSessionExpired    Reason = "session_expired"
	ReasonSessionInvalid    Reason = "session_invalid"
	ReasonRoleInsufficient  Reason = "role_insufficient"
)

// HTTPStatus maps a denial reason to the response status callers should see.
// Role shortfalls are 403; every other denial is 401.
func (r Reason) HTTPStatus() int {
	switch r {
	case ReasonAllowed:
		return http.StatusOK
	case ReasonRoleInsufficient:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// RequestInfo carries the authorization-relevant parts of one inbound request.
type RequestInfo struct {
	// APIKey is the presented X-API-Key header value, empty if absent.
	APIKey string
	// Origin is the presented Origin header, falling back to Referer.
	Origin string
	// RouteClass is the class of the route being called.
	RouteClass RouteClass
	// SessionToken is the bearer session token, empty if absent. Only
	// consulted for internal routes.
	SessionToken string
	// MinRole, when set, is the minimum role the endpoint requires.
	MinRole *Role
}

// Decision is the outcome of one gate evaluation. Produced fresh per request
// and never persisted.
type Decision struct {
	Allowed    bool
	Reason     Reason
	Credential *ServiceCredential
	Claims     *SessionClaims
}

// Gate is the combined authorization decision procedure: API key, origin,
// session, and role checks, short-circuiting in that order so the caller
// always sees the earliest applicable failure.
type Gate struct {
	registry     *Registry
	verifier     SessionVerifier
	strictOrigin bool
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithStrictOrigin makes origin mismatches a hard denial. Outside strict
// mode a mismatch only logs a warning.
func WithStrictOrigin(strict bool) GateOption {
	return func(g *Gate) { g.strictOrigin = strict }
}

// WithLogger sets the structured logger used for per-decision audit lines.
func WithLogger(logger *observability.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// WithMetrics sets the metrics sink for decision counters.
func WithMetrics(metrics *observability.Metrics) GateOption {
	return func(g *Gate) { g.metrics = metrics }
}

// NewGate builds an authorization gate over the given credential registry and
// session verifier.
func NewGate(registry *Registry, verifier SessionVerifier, opts ...GateOption) *Gate {
	g := &Gate{registry: registry, verifier: verifier}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize evaluates one request. The check order is fixed: missing key,
// unknown key, route class, origin, then (internal routes only) session and
// role. External routes never require a session.
func (g *Gate) Authorize(ctx context.Context, req RequestInfo) Decision {
	decision := g.evaluate(req)
	g.record(ctx, req, decision)
	return decision
}

func (g *Gate) evaluate(req RequestInfo) Decision {
	if req.APIKey == "" {
		return Decision{Reason: ReasonMissingCredential}
	}

	cred := g.registry.Resolve(req.APIKey)
	if cred == nil {
		return Decision{Reason: ReasonInvalidCredential}
	}

	if !cred.AllowsRouteClass(req.RouteClass) {
		return Decision{Reason: ReasonRouteClassDenied, Credential: cred}
	}

	if req.Origin != "" && !g.registry.OriginAllowed(cred, req.Origin) {
		if g.strictOrigin {
			return Decision{Reason: ReasonOriginDenied, Credential: cred}
		}
		if g.logger != nil {
			g.logger.WithFields(map[string]interface{}{
				"credential": cred.Name,
				"origin":     req.Origin,
			}).Warn("origin not allowed for this API key")
		}
	}

	if req.RouteClass == RouteClassExternal {
		return Decision{Allowed: true, Reason: ReasonAllowed, Credential: cred}
	}

	if req.SessionToken == "" {
		return Decision{Reason: ReasonSessionMissing, Credential: cred}
	}
	claims, err := g.verifier.Verify(req.SessionToken)
	if err != nil {
		reason := ReasonSessionInvalid
		if errors.Is(err, ErrSessionExpired) {
			reason = ReasonSessionExpired
		}
		return Decision{Reason: reason, Credential: cred}
	}

	if req.MinRole != nil && !claims.Role.AtLeast(*req.MinRole) {
		return Decision{Reason: ReasonRoleInsufficient, Credential: cred, Claims: &claims}
	}

	return Decision{Allowed: true, Reason: ReasonAllowed, Credential: cred, Claims: &claims}
}

// record emits the per-decision audit log line and metrics increment.
func (g *Gate) record(ctx context.Context, req RequestInfo, decision Decision) {
	if g.metrics != nil {
		g.metrics.RecordGateDecision(string(req.RouteClass), string(decision.Reason), decision.Allowed)
	}
	if g.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"allowed":     decision.Allowed,
		"reason":      string(decision.Reason),
		"route_class": string(req.RouteClass),
	}
	if decision.Credential != nil {
		fields["credential"] = decision.Credential.Name
	}
	if decision.Claims != nil {
		fields["subject"] = decision.Claims.SubjectID
		fields["role"] = decision.Claims.Role.String()
	}
	if requestID := observability.GetRequestID(ctx); requestID != "" {
		fields["request_id"] = requestID
	}
	logger := g.logger.WithFields(fields)
	if decision.Allowed {
		logger.Debug("authorization allowed")
	} else {
		logger.Info("authorization denied")
	}
}
