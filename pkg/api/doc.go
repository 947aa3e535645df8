// Package api assembles the HTTP surface: the partner-facing external
// routes, the session-protected internal routes, the sign-in endpoints,
// and the health/metrics sidecar. Route groups differ only in which
// authorization chain wraps them; handlers themselves assume the gate has
// already run.
package api
