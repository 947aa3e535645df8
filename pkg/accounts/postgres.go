package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/alohawaii-travel/api/pkg/auth"
)

// uniqueViolation is the postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

// PostgresStore persists accounts in the users table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an account store over the database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, email, display_name, avatar_url, role, active, domain, last_login_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*Account, error) {
	var (
		account Account
		role    string
	)
	err := row.Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.AvatarURL,
		&role, &account.Active, &account.Domain,
		&account.LastLoginAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("accounts: corrupt role for %s: %w", account.ID, err)
	}
	account.Role = parsed
	return &account, nil
}

// Create inserts a new account row. The unique email index is the only
// guard against concurrent double-creation; violations surface as
// ErrDuplicateEmail for the caller to resolve by re-reading.
func (s *PostgresStore) Create(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, avatar_url, role, active, domain, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, account.ID, NormalizeEmail(account.Email), account.DisplayName, account.AvatarURL,
		account.Role.String(), account.Active, account.Domain, account.LastLoginAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("accounts: create: %w", err)
	}
	return nil
}

// FindByEmail returns the account with the given email, or ErrNotFound.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE email = $1`,
		NormalizeEmail(email))
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: find by email: %w", err)
	}
	return account, nil
}

// FindByID returns the account with the given id, or ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: find by id: %w", err)
	}
	return account, nil
}

// List returns all accounts ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("accounts: scan: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// RecordLogin updates last_login_at and the display fields in one statement.
func (s *PostgresStore) RecordLogin(ctx context.Context, id string, profile ProfileUpdate, at time.Time) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET last_login_at = $2, display_name = $3, avatar_url = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, at, profile.DisplayName, profile.AvatarURL)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: record login: %w", err)
	}
	return account, nil
}

// SetRole updates the account role.
func (s *PostgresStore) SetRole(ctx context.Context, id string, role auth.Role) (*Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("accounts: invalid role %d", int(role))
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, role.String())
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: set role: %w", err)
	}
	return account, nil
}

// SetActive toggles the active flag.
func (s *PostgresStore) SetActive(ctx context.Context, id string, active bool) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, active)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: set active: %w", err)
	}
	return account, nil
}
