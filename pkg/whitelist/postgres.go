package whitelist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists whitelist entries in the domain_whitelist table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a whitelist store over the database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Find returns the entry for a domain, or ErrNotFound.
func (s *PostgresStore) Find(ctx context.Context, domain string) (*Entry, error) {
	entry := &Entry{}
	err := s.db.QueryRowContext(ctx, `
		SELECT domain, active, created_at, updated_at
		FROM domain_whitelist
		WHERE domain = $1
	`, NormalizeDomain(domain)).Scan(&entry.Domain, &entry.Active, &entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("whitelist: find %q: %w", domain, err)
	}
	return entry, nil
}

// List returns all entries ordered by domain.
func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, active, created_at, updated_at
		FROM domain_whitelist
		ORDER BY domain
	`)
	if err != nil {
		return nil, fmt.Errorf("whitelist: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Domain, &entry.Active, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("whitelist: scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert creates the domain as active or reactivates an existing row.
func (s *PostgresStore) Upsert(ctx context.Context, domain string) (*Entry, error) {
	entry := &Entry{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO domain_whitelist (domain, active, created_at, updated_at)
		VALUES ($1, true, NOW(), NOW())
		ON CONFLICT (domain) DO UPDATE SET active = true, updated_at = NOW()
		RETURNING domain, active, created_at, updated_at
	`, NormalizeDomain(domain)).Scan(&entry.Domain, &entry.Active, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("whitelist: upsert %q: %w", domain, err)
	}
	return entry, nil
}

// SetActive toggles a row. Soft-disable only; rows are never deleted here.
func (s *PostgresStore) SetActive(ctx context.Context, domain string, active bool) (*Entry, error) {
	entry := &Entry{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE domain_whitelist
		SET active = $2, updated_at = NOW()
		WHERE domain = $1
		RETURNING domain, active, created_at, updated_at
	`, NormalizeDomain(domain), active).Scan(&entry.Domain, &entry.Active, &entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("whitelist: set active %q: %w", domain, err)
	}
	return entry, nil
}
