// Package middleware adapts the authorization gate and rate limiting to
// gorilla/mux. The gate middleware collects the credential, origin, and
// session material from the request, asks the gate for a decision, and
// translates denials into envelope responses. Handlers downstream read the
// resolved credential and session claims from the request context.
package middleware
