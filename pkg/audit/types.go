package audit

import (
	"context"
	"time"
)

// EventType categorizes one audit entry.
type EventType string

const (
	EventSignIn             EventType = "auth.sign_in"
	EventSignInDenied       EventType = "auth.sign_in_denied"
	EventSignOut            EventType = "auth.sign_out"
	EventAccountCreated     EventType = "account.created"
	EventRoleChanged        EventType = "account.role_changed"
	EventAccountActivated   EventType = "account.activated"
	EventAccountDeactivated EventType = "account.deactivated"
	EventWhitelistAdded     EventType = "whitelist.added"
	EventWhitelistDisabled  EventType = "whitelist.disabled"
)

// EventStatus is the outcome attached to an entry.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusDenied  EventStatus = "denied"
	StatusFailure EventStatus = "failure"
)

// Event is one audit entry. ActorID is the account performing the action;
// for sign-ins the actor and subject coincide.
type Event struct {
	ID         int64                  `json:"id,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Type       EventType              `json:"type"`
	Status     EventStatus            `json:"status"`
	ActorID    string                 `json:"actor_id,omitempty"`
	ActorEmail string                 `json:"actor_email,omitempty"`
	SubjectID  string                 `json:"subject_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder persists audit events. Implementations must tolerate concurrent
// calls.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
	Close() error
}
