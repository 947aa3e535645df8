package auth

import "context"

type claimsContextKey struct{}
type credentialContextKey struct{}

// ContextWithClaims attaches verified session claims to the context.
func ContextWithClaims(ctx context.Context, claims SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts session claims previously attached by the
// authentication middleware.
func ClaimsFromContext(ctx context.Context) (SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(SessionClaims)
	return claims, ok
}

// ContextWithCredential attaches the matched service credential to the context.
func ContextWithCredential(ctx context.Context, cred *ServiceCredential) context.Context {
	if cred == nil {
		return ctx
	}
	return context.WithValue(ctx, credentialContextKey{}, cred)
}

// CredentialFromContext extracts the matched service credential.
func CredentialFromContext(ctx context.Context) (*ServiceCredential, bool) {
	cred, ok := ctx.Value(credentialContextKey{}).(*ServiceCredential)
	if !ok || cred == nil {
		return nil, false
	}
	return cred, true
}
