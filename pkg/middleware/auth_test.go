package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestRouter(t *testing.T) (*mux.Router, *auth.TokenIssuer) {
	t.Helper()
	registry, err := auth.NewRegistry([]auth.ServiceCredential{
		{
			Key:          "website-key",
			Name:         "website",
			RouteClasses: []auth.RouteClass{auth.RouteClassInternal},
		},
		{
			Key:          "partner-key",
			Name:         "partner",
			RouteClasses: []auth.RouteClass{auth.RouteClassExternal},
		},
	})
	require.NoError(t, err)
	issuer, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	gate := auth.NewGate(registry, issuer)

	r := mux.NewRouter()

	external := r.PathPrefix("/external").Subrouter()
	external.Use(External(gate))
	external.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		cred, ok := auth.CredentialFromContext(r.Context())
		require.True(t, ok)
		httputil.WriteSuccess(w, cred.Name)
	}).Methods(http.MethodGet)

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(Internal(gate, auth.RoleStaff))
	internal.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		require.True(t, ok)
		httputil.WriteSuccess(w, claims.Email)
	}).Methods(http.MethodGet)

	return r, issuer
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	var envelope httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestAuthorizeMissingKey(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/external/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, httputil.CodeUnauthorized, envelope.Code)
}

func TestAuthorizeExternalHappyPath(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/external/ping", nil)
	req.Header.Set(APIKeyHeader, "partner-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
	assert.Equal(t, "partner", envelope.Data)
}

func TestAuthorizeRouteClassDenied(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set(APIKeyHeader, "partner-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeSessionMissing(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set(APIKeyHeader, "website-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Authentication required", envelope.Error)
}

func TestAuthorizeRoleInsufficient(t *testing.T) {
	router, issuer := newTestRouter(t)
	token, _, err := issuer.Issue("user-1", "kai@alohawaii.travel", auth.RoleReadOnly, "alohawaii.travel")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set(APIKeyHeader, "website-key")
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, httputil.CodeForbidden, envelope.Code)
}

func TestAuthorizeInternalHappyPath(t *testing.T) {
	router, issuer := newTestRouter(t)
	token, _, err := issuer.Issue("user-1", "kai@alohawaii.travel", auth.RoleAdmin, "alohawaii.travel")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set(APIKeyHeader, "website-key")
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "kai@alohawaii.travel", envelope.Data)
}
