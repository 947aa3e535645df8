package sso

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/accounts"
	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/observability"
)

// stateCookieName carries the CSRF state between the login redirect and the
// provider callback.
const stateCookieName = "alohawaii_oauth_state"

const stateCookieMaxAge = 10 * time.Minute

// Handler serves the sign-in endpoints: redirect to the provider, consume
// the callback, and clear the session on logout.
type Handler struct {
	provider      IdentityProvider
	lifecycle     *accounts.LifecycleController
	issuer        *auth.TokenIssuer
	logger        *observability.Logger
	recorder      audit.Recorder
	secureCookies bool
}

// HandlerOption configures the sign-in handler.
type HandlerOption func(*Handler)

// WithLogger sets the structured logger.
func WithLogger(logger *observability.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithSecureCookies marks session and state cookies Secure. On for any
// deployment behind TLS; off only for local development over plain HTTP.
func WithSecureCookies(secure bool) HandlerOption {
	return func(h *Handler) { h.secureCookies = secure }
}

// WithRecorder sets the audit trail for sign-in and sign-out outcomes.
func WithRecorder(recorder audit.Recorder) HandlerOption {
	return func(h *Handler) { h.recorder = recorder }
}

// NewHandler builds the sign-in handler.
func NewHandler(provider IdentityProvider, lifecycle *accounts.LifecycleController, issuer *auth.TokenIssuer, opts ...HandlerOption) *Handler {
	h := &Handler{
		provider:      provider,
		lifecycle:     lifecycle,
		issuer:        issuer,
		secureCookies: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the sign-in endpoints on the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/callback", h.Callback).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/logout", h.Logout).Methods(http.MethodPost)
}

// Login starts the OAuth2 flow: mint a random state, pin it in a short-lived
// cookie, and redirect to the provider.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		h.logError(r, err, "generate oauth state")
		httputil.WriteInternalError(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback consumes the provider redirect: validate state, exchange the
// code for a verified identity, run the account lifecycle, and set the
// session cookie. Pending accounts still get a session; the gate's role
// floor is what keeps them off internal routes.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		httputil.WriteUnauthorized(w, "Sign-in was denied by the identity provider")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		httputil.WriteUnauthorized(w, "Invalid sign-in state")
		return
	}
	h.clearCookie(w, stateCookieName, "/api/auth")

	code := query.Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "Missing authorization code")
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logError(r, err, "exchange authorization code")
		h.audit(r, audit.EventSignInDenied, audit.StatusFailure, "", "identity could not be verified")
		httputil.WriteUnauthorized(w, "Sign-in could not be verified")
		return
	}

	account, err := h.lifecycle.HandleSignIn(r.Context(), identity)
	switch {
	case errors.Is(err, accounts.ErrMalformedEmail):
		h.audit(r, audit.EventSignInDenied, audit.StatusDenied, identity.Email, "malformed email")
		httputil.WriteBadRequest(w, "Malformed email address")
		return
	case errors.Is(err, accounts.ErrDomainNotAllowed):
		h.audit(r, audit.EventSignInDenied, audit.StatusDenied, identity.Email, "domain not whitelisted")
		httputil.WriteForbidden(w, "Email domain is not allowed")
		return
	case errors.Is(err, accounts.ErrAccountDeactivated):
		h.audit(r, audit.EventSignInDenied, audit.StatusDenied, identity.Email, "account deactivated")
		httputil.WriteForbidden(w, "Account has been deactivated")
		return
	case err != nil:
		h.logError(r, err, "sign-in lifecycle")
		h.audit(r, audit.EventSignInDenied, audit.StatusFailure, identity.Email, "lifecycle store fault")
		httputil.WriteServiceUnavailable(w, "Sign-in is temporarily unavailable")
		return
	}

	// Claims always reflect the freshly read row, never stale provider data.
	token, _, err := h.issuer.Issue(account.ID, account.Email, account.Role, account.Domain)
	if err != nil {
		h.logError(r, err, "issue session token")
		httputil.WriteInternalError(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	h.auditSignedIn(r, account)
	httputil.WriteSuccess(w, account)
}

// Logout clears the session cookie. There is no server-side revocation;
// the token simply stops being presented.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auditSignedOut(r)
	h.clearCookie(w, auth.SessionCookieName, "/")
	httputil.WriteSuccess(w, map[string]string{"message": "Signed out"})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// audit records one sign-in outcome. Recording failures are logged, never
// surfaced to the caller.
func (h *Handler) audit(r *http.Request, eventType audit.EventType, status audit.EventStatus, email, message string) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Type:       eventType,
		Status:     status,
		ActorEmail: email,
		RequestID:  observability.GetRequestID(r.Context()),
		IPAddress:  httputil.ClientIP(r),
		Message:    message,
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.logError(r, err, "record audit event")
	}
}

func (h *Handler) auditSignedIn(r *http.Request, account *accounts.Account) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Type:       audit.EventSignIn,
		Status:     audit.StatusSuccess,
		ActorID:    account.ID,
		ActorEmail: account.Email,
		SubjectID:  account.ID,
		RequestID:  observability.GetRequestID(r.Context()),
		IPAddress:  httputil.ClientIP(r),
		Metadata:   map[string]interface{}{"role": account.Role.String()},
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.logError(r, err, "record audit event")
	}
}

// auditSignedOut attributes the sign-out to the session holder when the
// presented cookie still verifies; an anonymous sign-out is recorded
// otherwise.
func (h *Handler) auditSignedOut(r *http.Request) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Type:      audit.EventSignOut,
		Status:    audit.StatusSuccess,
		RequestID: observability.GetRequestID(r.Context()),
		IPAddress: httputil.ClientIP(r),
	}
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if claims, err := h.issuer.Verify(cookie.Value); err == nil {
			event.ActorID = claims.SubjectID
			event.ActorEmail = claims.Email
			event.SubjectID = claims.SubjectID
		}
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.logError(r, err, "record audit event")
	}
}

func (h *Handler) logError(r *http.Request, err error, msg string) {
	if h.logger == nil {
		return
	}
	h.logger.WithError(err).
		WithField("request_id", observability.GetRequestID(r.Context())).
		Error(msg)
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
