package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/alohawaii-travel/api/pkg/auth"
)

var (
	// ErrNotFound indicates no account exists for the given key.
	ErrNotFound = errors.New("accounts: not found")
	// ErrDuplicateEmail indicates the unique-email constraint fired. Two
	// concurrent first sign-ins race on this constraint; the loser must
	// re-read the winning row, not fail the request.
	ErrDuplicateEmail = errors.New("accounts: email already exists")
)

// ProfileUpdate carries the mutable display fields refreshed on sign-in.
type ProfileUpdate struct {
	DisplayName string
	AvatarURL   string
}

// Store is the persistence contract for accounts.
type Store interface {
	// Create inserts a new account. A unique-email violation is returned
	// as ErrDuplicateEmail.
	Create(ctx context.Context, account *Account) error
	// FindByEmail returns the account with the given email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByID returns the account with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Account, error)
	// List returns all accounts ordered by creation time.
	List(ctx context.Context) ([]Account, error)
	// RecordLogin updates last_login_at and the display fields.
	RecordLogin(ctx context.Context, id string, profile ProfileUpdate, at time.Time) (*Account, error)
	// SetRole updates the role. Administrative path only; the lifecycle
	// controller never calls this.
	SetRole(ctx context.Context, id string, role auth.Role) (*Account, error)
	// SetActive toggles the active flag. Deactivation is the terminal
	// normal state; accounts are never deleted.
	SetActive(ctx context.Context, id string, active bool) (*Account, error)
}
