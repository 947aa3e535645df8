package tours

import "context"

// Store is the persistence contract for the tour catalog.
type Store interface {
	// Create inserts a new tour. A slug collision is returned as
	// ErrDuplicateSlug.
	Create(ctx context.Context, tour *Tour) error
	// FindByID returns the tour with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Tour, error)
	// FindBySlug returns the tour with the given slug, or ErrNotFound.
	FindBySlug(ctx context.Context, slug string) (*Tour, error)
	// List returns tours ordered by title. When activeOnly is set,
	// inactive tours are excluded.
	List(ctx context.Context, activeOnly bool) ([]Tour, error)
	// Update rewrites the writable fields of an existing tour.
	Update(ctx context.Context, tour *Tour) (*Tour, error)
	// SetActive toggles catalog visibility.
	SetActive(ctx context.Context, id string, active bool) (*Tour, error)
}
