package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
)

// RateLimiter tracks one token bucket per caller. Authenticated requests
// are keyed by credential name so every partner gets its own budget;
// everything else falls back to the client IP.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rateClient
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	registry *auth.Registry
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithCredentialRegistry resolves the API key header so authenticated
// requests are keyed by credential name even when the limiter runs before
// the authorization middleware.
func WithCredentialRegistry(registry *auth.Registry) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.registry = registry
	}
}

// NewRateLimiter allows rps sustained requests per second with the given
// burst per caller.
func NewRateLimiter(rps float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = int(rps)
	}
	rl := &RateLimiter{
		clients: make(map[string]*rateClient),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// keyFor picks the bucket key for a request. A resolvable credential wins
// over the client IP, whether it was already stored in the context or only
// presented in the header.
func (rl *RateLimiter) keyFor(r *http.Request) string {
	if cred, ok := auth.CredentialFromContext(r.Context()); ok {
		return "credential:" + cred.Name
	}
	if rl.registry != nil {
		if cred := rl.registry.Resolve(r.Header.Get(APIKeyHeader)); cred != nil {
			return "credential:" + cred.Name
		}
	}
	return "ip:" + httputil.ClientIP(r)
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[key]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = rl.now()
	return c.limiter.Allow()
}

// Cleanup evicts buckets idle longer than the TTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idleTTL)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// StartCleanup evicts idle buckets in the background until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.idleTTL)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Middleware rejects callers over their budget with a 429 envelope.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.keyFor(r)) {
			retryAfter := 1
			if rl.limit < 1 {
				retryAfter = int(1/float64(rl.limit)) + 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteTooManyRequests(w, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
