package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
)

func TestRateLimiterBurst(t *testing.T) {
	limiter := NewRateLimiter(1, 3)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, nil)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d within burst", i)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Same IP is now exhausted.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different IP still has its own budget.
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterKeysAuthenticatedCallersByCredential(t *testing.T) {
	registry, err := auth.NewRegistry([]auth.ServiceCredential{
		{Key: "partner-key", Name: "partner", RouteClasses: []auth.RouteClass{auth.RouteClassExternal}},
	})
	require.NoError(t, err)
	limiter := NewRateLimiter(1, 1, WithCredentialRegistry(registry))
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// The limiter runs before the gate, so only the header identifies the
	// caller here.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set(APIKeyHeader, "partner-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, limiter.clients, "credential:partner")
	assert.NotContains(t, limiter.clients, "ip:10.0.0.1")

	// Partner budget exhausted, but an unauthenticated caller from the same
	// address still has its own bucket.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, anon)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, limiter.clients, "ip:10.0.0.1")
}

func TestRateLimiterUnknownKeyFallsBackToIP(t *testing.T) {
	registry, err := auth.NewRegistry([]auth.ServiceCredential{
		{Key: "partner-key", Name: "partner", RouteClasses: []auth.RouteClass{auth.RouteClassExternal}},
	})
	require.NoError(t, err)
	limiter := NewRateLimiter(1, 1, WithCredentialRegistry(registry))
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	req.Header.Set(APIKeyHeader, "bogus-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, limiter.clients, "ip:10.0.0.3")
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.allow("ip:10.0.0.1")
	limiter.allow("ip:10.0.0.2")
	assert.Len(t, limiter.clients, 2)

	// Age both entries past the idle TTL, then evict.
	limiter.now = func() time.Time { return time.Now().Add(time.Hour) }
	limiter.Cleanup()
	assert.Empty(t, limiter.clients)
}
