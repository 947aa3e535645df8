// Package accounts holds the account model, its postgres store, and the
// lifecycle controller that maps a verified third-party identity onto an
// internal account: create on first whitelisted sign-in, update on
// subsequent sign-ins, reject for non-whitelisted domains or deactivated
// accounts.
//
// The controller never escalates roles. New accounts start at Pending and
// stay there until an administrator promotes them; the authorization gate,
// not this package, is what keeps Pending accounts off internal routes.
package accounts
