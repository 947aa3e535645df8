package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName is the HTTP-only cookie carrying the session token.
	SessionCookieName = "alohawaii_session"
	// MaxSessionLifetime caps the configured session TTL. There is no
	// revocation list; role downgrades and deactivations take effect only
	// when the outstanding token expires, so this bound is the staleness
	// window operators must plan around.
	MaxSessionLifetime = 30 * 24 * time.Hour
	// DefaultSessionLifetime is used when no TTL is configured.
	DefaultSessionLifetime = 7 * 24 * time.Hour
)

// SessionClaims is the decoded, trusted payload of a session token. Claims
// are computed from the account at issuance time and carried opaquely
// afterward; the gate trusts them without re-querying the store.
type SessionClaims struct {
	SubjectID string
	Email     string
	Role      Role
	Domain    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionVerifier validates a session token and yields its claims.
type SessionVerifier interface {
	Verify(token string) (SessionClaims, error)
}

type sessionJWTClaims struct {
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Domain string `json:"hd,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256-signed session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenIssuerOption configures a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithIssuer sets the iss claim embedded in minted tokens.
func WithIssuer(issuer string) TokenIssuerOption {
	return func(ti *TokenIssuer) { ti.issuer = issuer }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if now != nil {
			ti.now = now
		}
	}
}

// NewTokenIssuer creates a token issuer. The TTL is clamped to
// MaxSessionLifetime; a zero TTL falls back to DefaultSessionLifetime.
func NewTokenIssuer(secret string, ttl time.Duration, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("auth: session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionLifetime
	}
	if ttl > MaxSessionLifetime {
		ttl = MaxSessionLifetime
	}
	ti := &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ti)
	}
	return ti, nil
}

// TTL returns the effective session lifetime.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue mints a session token for the given account attributes and returns
// the signed token alongside the claims it embeds.
func (ti *TokenIssuer) Issue(subjectID, email string, role Role, domain string) (string, SessionClaims, error) {
	if subjectID == "" {
		return "", SessionClaims{}, errors.New("auth: subject id is required")
	}
	if !role.Valid() {
		return "", SessionClaims{}, fmt.Errorf("auth: cannot issue token for invalid role %d", int(role))
	}
	now := ti.now().UTC()
	expires := now.Add(ti.ttl)
	claims := sessionJWTClaims{
		Email:  email,
		Role:   role.String(),
		Domain: domain,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", SessionClaims{}, fmt.Errorf("auth: sign session token: %w", err)
	}
	return token, SessionClaims{
		SubjectID: subjectID,
		Email:     email,
		Role:      role,
		Domain:    domain,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Verify validates a session token. Expired tokens yield ErrSessionExpired;
// every other failure yields ErrSessionInvalid.
func (ti *TokenIssuer) Verify(token string) (SessionClaims, error) {
	parsed := &sessionJWTClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
	}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}
	_, err := jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	role, err := ParseRole(parsed.Role)
	if err != nil {
		return SessionClaims{}, ErrSessionInvalid
	}
	if parsed.Subject == "" || parsed.ExpiresAt == nil {
		return SessionClaims{}, ErrSessionInvalid
	}
	claims := SessionClaims{
		SubjectID: parsed.Subject,
		Email:     parsed.Email,
		Role:      role,
		Domain:    parsed.Domain,
		ExpiresAt: parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}
