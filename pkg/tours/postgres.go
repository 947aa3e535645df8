package tours

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore persists the catalog in the tours table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a tour store over the database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tourColumns = `id, slug, title, description, duration_minutes, price_cents, currency, active, created_at, updated_at`

func scanTour(row interface{ Scan(...interface{}) error }) (*Tour, error) {
	var t Tour
	err := row.Scan(
		&t.ID, &t.Slug, &t.Title, &t.Description,
		&t.DurationMinutes, &t.PriceCents, &t.Currency, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tour row.
func (s *PostgresStore) Create(ctx context.Context, tour *Tour) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tours (id, slug, title, description, duration_minutes, price_cents, currency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, tour.ID, tour.Slug, tour.Title, tour.Description,
		tour.DurationMinutes, tour.PriceCents, tour.Currency, tour.Active)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("tours: create: %w", err)
	}
	return nil
}

// FindByID returns the tour with the given id, or ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Tour, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = $1`, id)
	tour, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tours: find by id: %w", err)
	}
	return tour, nil
}

// FindBySlug returns the tour with the given slug, or ErrNotFound.
func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*Tour, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE slug = $1`, slug)
	tour, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tours: find by slug: %w", err)
	}
	return tour, nil
}

// List returns tours ordered by title, optionally active only.
func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY title`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tours: list: %w", err)
	}
	defer rows.Close()

	var tours []Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("tours: scan: %w", err)
		}
		tours = append(tours, *tour)
	}
	return tours, rows.Err()
}

// Update rewrites the writable fields of an existing tour.
func (s *PostgresStore) Update(ctx context.Context, tour *Tour) (*Tour, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE tours
		SET slug = $2, title = $3, description = $4, duration_minutes = $5,
		    price_cents = $6, currency = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tourColumns,
		tour.ID, tour.Slug, tour.Title, tour.Description,
		tour.DurationMinutes, tour.PriceCents, tour.Currency)
	updated, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("tours: update: %w", err)
	}
	return updated, nil
}

// SetActive toggles catalog visibility.
func (s *PostgresStore) SetActive(ctx context.Context, id string, active bool) (*Tour, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE tours
		SET active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tourColumns,
		id, active)
	tour, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tours: set active: %w", err)
	}
	return tour, nil
}
