package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alohawaii-travel/api/pkg/accounts"
	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/whitelist"
)

type fakeProvider struct {
	identity    accounts.Identity
	exchangeErr error
	lastCode    string
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/auth?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (accounts.Identity, error) {
	p.lastCode = code
	if p.exchangeErr != nil {
		return accounts.Identity{}, p.exchangeErr
	}
	return p.identity, nil
}

type memoryStore struct {
	byEmail map[string]*accounts.Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: make(map[string]*accounts.Account)}
}

func (s *memoryStore) Create(ctx context.Context, account *accounts.Account) error {
	if _, exists := s.byEmail[account.Email]; exists {
		return accounts.ErrDuplicateEmail
	}
	copied := *account
	s.byEmail[account.Email] = &copied
	return nil
}

func (s *memoryStore) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	account, ok := s.byEmail[accounts.NormalizeEmail(email)]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *memoryStore) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	for _, account := range s.byEmail {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *memoryStore) List(ctx context.Context) ([]accounts.Account, error) {
	var out []accounts.Account
	for _, account := range s.byEmail {
		out = append(out, *account)
	}
	return out, nil
}

func (s *memoryStore) RecordLogin(ctx context.Context, id string, profile accounts.ProfileUpdate, at time.Time) (*accounts.Account, error) {
	for _, account := range s.byEmail {
		if account.ID == id {
			account.LastLoginAt = &at
			account.DisplayName = profile.DisplayName
			account.AvatarURL = profile.AvatarURL
			copied := *account
			return &copied, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *memoryStore) SetRole(ctx context.Context, id string, role auth.Role) (*accounts.Account, error) {
	for _, account := range s.byEmail {
		if account.ID == id {
			account.Role = role
			copied := *account
			return &copied, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *memoryStore) SetActive(ctx context.Context, id string, active bool) (*accounts.Account, error) {
	for _, account := range s.byEmail {
		if account.ID == id {
			account.Active = active
			copied := *account
			return &copied, nil
		}
	}
	return nil, accounts.ErrNotFound
}

type trailRecorder struct {
	events []*audit.Event
}

func (r *trailRecorder) Record(ctx context.Context, event *audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *trailRecorder) Close() error { return nil }

func (r *trailRecorder) types() []audit.EventType {
	out := make([]audit.EventType, len(r.events))
	for i, event := range r.events {
		out[i] = event.Type
	}
	return out
}

func newAuditedHandler(t *testing.T, provider IdentityProvider) (*Handler, *memoryStore, *auth.TokenIssuer, *trailRecorder) {
	t.Helper()
	store := newMemoryStore()
	trail := &trailRecorder{}
	checker := whitelist.NewChecker([]string{"alohawaii.travel"}, nil, nil)
	lifecycle := accounts.NewLifecycleController(store, checker, accounts.WithRecorder(trail))
	issuer, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	handler := NewHandler(provider, lifecycle, issuer,
		WithSecureCookies(false), WithRecorder(trail))
	return handler, store, issuer, trail
}

func newTestHandler(t *testing.T, provider IdentityProvider) (*Handler, *memoryStore, *auth.TokenIssuer) {
	t.Helper()
	store := newMemoryStore()
	checker := whitelist.NewChecker([]string{"alohawaii.travel"}, nil, nil)
	lifecycle := accounts.NewLifecycleController(store, checker)
	issuer, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	handler := NewHandler(provider, lifecycle, issuer, WithSecureCookies(false))
	return handler, store, issuer
}

func newCallbackRequest(state, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+query, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	}
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestLoginRedirectsWithState(t *testing.T) {
	provider := &fakeProvider{}
	handler, _, _ := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))

	assert.Equal(t, http.StatusFound, rec.Code)

	var state string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == stateCookieName {
			state = cookie.Value
			assert.True(t, cookie.HttpOnly)
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, "https://provider.example/auth?state="+state, rec.Header().Get("Location"))
}

func TestCallbackStateMismatch(t *testing.T) {
	provider := &fakeProvider{}
	handler, _, _ := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("expected", "state=forged&code=abc"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, provider.lastCode, "the code is never exchanged on a state mismatch")
}

func TestCallbackProviderError(t *testing.T) {
	provider := &fakeProvider{}
	handler, _, _ := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "error=access_denied&state=s"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackMissingCode(t *testing.T) {
	provider := &fakeProvider{}
	handler, _, _ := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackSuccessSetsSession(t *testing.T) {
	provider := &fakeProvider{identity: accounts.Identity{
		Subject:     "google-123",
		Email:       "kai@alohawaii.travel",
		DisplayName: "Kai",
	}}
	handler, store, issuer := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", provider.lastCode)
	require.Len(t, store.byEmail, 1)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie, "a session cookie is set even for Pending accounts")
	assert.True(t, cookie.HttpOnly)

	claims, err := issuer.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, auth.RolePending, claims.Role, "claims reflect the stored row")
	assert.Equal(t, "kai@alohawaii.travel", claims.Email)
}

func TestCallbackDomainDenied(t *testing.T) {
	provider := &fakeProvider{identity: accounts.Identity{
		Email: "mallory@evil.example.com",
	}}
	handler, store, _ := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.byEmail)
	assert.Nil(t, sessionCookie(rec))
}

func TestCallbackDeactivatedAccount(t *testing.T) {
	provider := &fakeProvider{identity: accounts.Identity{
		Email: "kai@alohawaii.travel",
	}}
	handler, store, _ := newTestHandler(t, provider)
	store.byEmail["kai@alohawaii.travel"] = &accounts.Account{
		ID:     "id-1",
		Email:  "kai@alohawaii.travel",
		Role:   auth.RoleStaff,
		Active: false,
		Domain: "alohawaii.travel",
	}

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestCallbackExchangeFailure(t *testing.T) {
	provider := &fakeProvider{exchangeErr: assert.AnError}
	handler, _, _ := newTestHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackRecordsSignInTrail(t *testing.T) {
	provider := &fakeProvider{identity: accounts.Identity{
		Subject: "google-123",
		Email:   "kai@alohawaii.travel",
	}}
	handler, _, _, trail := newAuditedHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []audit.EventType{audit.EventAccountCreated, audit.EventSignIn}, trail.types())

	signIn := trail.events[1]
	assert.Equal(t, audit.StatusSuccess, signIn.Status)
	assert.Equal(t, "kai@alohawaii.travel", signIn.ActorEmail)
	assert.Equal(t, trail.events[0].SubjectID, signIn.SubjectID)
}

func TestCallbackDomainDeniedRecordsTrail(t *testing.T) {
	provider := &fakeProvider{identity: accounts.Identity{
		Email: "mallory@evil.example.com",
	}}
	handler, _, _, trail := newAuditedHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, []audit.EventType{audit.EventSignInDenied}, trail.types())
	assert.Equal(t, audit.StatusDenied, trail.events[0].Status)
	assert.Equal(t, "mallory@evil.example.com", trail.events[0].ActorEmail)
}

func TestCallbackExchangeFailureRecordsTrail(t *testing.T) {
	provider := &fakeProvider{exchangeErr: assert.AnError}
	handler, _, _, trail := newAuditedHandler(t, provider)

	rec := httptest.NewRecorder()
	handler.Callback(rec, newCallbackRequest("s", "state=s&code=abc"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, []audit.EventType{audit.EventSignInDenied}, trail.types())
	assert.Equal(t, audit.StatusFailure, trail.events[0].Status)
}

func TestLogoutRecordsSignOut(t *testing.T) {
	provider := &fakeProvider{}
	handler, _, issuer, trail := newAuditedHandler(t, provider)
	token, _, err := issuer.Issue("id-1", "kai@alohawaii.travel", auth.RoleStaff, "alohawaii.travel")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []audit.EventType{audit.EventSignOut}, trail.types())
	assert.Equal(t, "kai@alohawaii.travel", trail.events[0].ActorEmail)
	assert.Equal(t, "id-1", trail.events[0].SubjectID)
}

func TestLogoutClearsCookie(t *testing.T) {
	provider := &fakeProvider{}
	handler, _, _ := newTestHandler(t, provider)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)

	var envelope httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
}
