// Package auth implements the authorization core for the Alohawaii API:
// the service credential registry, the role hierarchy, session token
// issuance and verification, and the per-request authorization gate that
// combines them into a single allow/deny decision.
//
// The gate is stateless. Every request is evaluated independently against
// the immutable credential registry and the claims embedded in the bearer
// session token; no cross-request state is consulted.
package auth
