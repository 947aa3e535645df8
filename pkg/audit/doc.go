// Package audit records security-relevant events: sign-ins, role changes,
// account activation flips, and whitelist edits. Events fan out to one or
// more recorders; the default deployment writes both a structured log line
// and a row in the auth_audit table.
package audit
