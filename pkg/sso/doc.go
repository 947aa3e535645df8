// Package sso implements third-party sign-in with Google via OpenID
// Connect: the OAuth2 redirect, the callback code exchange, ID token
// verification, and the handoff to the account lifecycle controller.
//
// Identity verification and route authorization are deliberately separate.
// A successful callback issues a session even for Pending accounts so the
// user gets feedback that sign-in worked; the authorization gate's role
// check is what keeps Pending accounts off internal routes.
package sso
