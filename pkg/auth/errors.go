package auth

import "errors"

var (
	// ErrSessionExpired indicates a well-formed session token whose expiry
	// has passed.
	ErrSessionExpired = errors.New("auth: session expired")
	// ErrSessionInvalid indicates a session token that failed signature or
	// claim validation.
	ErrSessionInvalid = errors.New("auth: session invalid")
	// ErrDuplicateCredential indicates two registry entries share a key.
	ErrDuplicateCredential = errors.New("auth: duplicate credential key")
	// ErrEmptyCredential indicates a registry entry with an empty key.
	ErrEmptyCredential = errors.New("auth: empty credential key")
)
