// Package whitelist decides which email domains may create or sign in to
// accounts. Two sources are checked independently with union semantics: a
// static allow-list from the environment and a persisted, operator-managed
// table. A store fault is never interpreted as "allowed" (fail closed).
//
// Lookups are deliberately uncached: every check re-queries the store so an
// operator toggle takes effect immediately.
package whitelist
