package sso

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/alohawaii-travel/api/pkg/accounts"
)

// GoogleIssuerURL is the OIDC discovery endpoint for Google accounts.
const GoogleIssuerURL = "https://accounts.google.com"

// Config holds the OAuth2 client registration for the identity provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// IssuerURL overrides the discovery endpoint, for tests against a
	// fake provider. Defaults to GoogleIssuerURL.
	IssuerURL string
	// Scopes defaults to openid, email, profile.
	Scopes []string
}

// IdentityProvider is the part of the OIDC flow the callback handler needs;
// an interface so tests can substitute a fake.
type IdentityProvider interface {
	// AuthCodeURL returns the provider redirect URL for the given state.
	AuthCodeURL(state string) string
	// Exchange trades the authorization code for a verified identity.
	Exchange(ctx context.Context, code string) (accounts.Identity, error)
}

// GoogleProvider implements IdentityProvider against Google OIDC.
type GoogleProvider struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewGoogleProvider discovers the OIDC endpoints and builds the provider.
func NewGoogleProvider(ctx context.Context, cfg Config) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("sso: client id and secret are required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("sso: redirect URL is required")
	}
	issuerURL := cfg.IssuerURL
	if issuerURL == "" {
		issuerURL = GoogleIssuerURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("sso: discover provider: %w", err)
	}

	return &GoogleProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
	}, nil
}

// AuthCodeURL returns the provider redirect URL for the given state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// idTokenClaims is the subset of Google ID token claims this service reads.
type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HostedDomain  string `json:"hd"`
}

// Exchange trades the authorization code for tokens, verifies the ID token,
// and maps its claims onto a provider-agnostic identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (accounts.Identity, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return accounts.Identity{}, fmt.Errorf("sso: exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return accounts.Identity{}, errors.New("sso: missing id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return accounts.Identity{}, fmt.Errorf("sso: verify id token: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return accounts.Identity{}, fmt.Errorf("sso: parse claims: %w", err)
	}
	if claims.Email == "" {
		return accounts.Identity{}, errors.New("sso: id token missing email")
	}
	if !claims.EmailVerified {
		return accounts.Identity{}, errors.New("sso: email not verified by provider")
	}

	return accounts.Identity{
		Subject:      idToken.Subject,
		Email:        claims.Email,
		DisplayName:  claims.Name,
		AvatarURL:    claims.Picture,
		HostedDomain: claims.HostedDomain,
	}, nil
}
