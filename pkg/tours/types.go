package tours

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Tour is one bookable catalog entry. Inactive tours stay in the table but
// disappear from the public listing.
type Tour struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates no tour exists for the given key.
	ErrNotFound = errors.New("tours: not found")
	// ErrDuplicateSlug indicates the unique slug constraint fired.
	ErrDuplicateSlug = errors.New("tours: slug already exists")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks the writable fields before a create or update.
func (t *Tour) Validate() error {
	if !slugPattern.MatchString(t.Slug) {
		return errors.New("tours: slug must be lowercase letters, digits, and hyphens")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("tours: title is required")
	}
	if t.DurationMinutes <= 0 {
		return errors.New("tours: duration must be positive")
	}
	if t.PriceCents < 0 {
		return errors.New("tours: price cannot be negative")
	}
	if t.Currency == "" {
		t.Currency = "USD"
	}
	if len(t.Currency) != 3 {
		return errors.New("tours: currency must be a 3-letter code")
	}
	t.Currency = strings.ToUpper(t.Currency)
	return nil
}
