package whitelist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alohawaii-travel/api/pkg/observability"
)

// ErrNotFound indicates the domain has no row in the persisted table.
var ErrNotFound = errors.New("whitelist: domain not found")

// Entry is one persisted whitelist row. Rows are soft-disabled via Active;
// they are never physically deleted in normal operation.
type Entry struct {
	Domain    string    `json:"domain"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence contract for whitelist entries.
type Store interface {
	// Find returns the entry for a domain, or ErrNotFound.
	Find(ctx context.Context, domain string) (*Entry, error)
	// List returns all entries, active and inactive.
	List(ctx context.Context) ([]Entry, error)
	// Upsert creates the domain as active, or reactivates an existing row.
	Upsert(ctx context.Context, domain string) (*Entry, error)
	// SetActive toggles a row without deleting it.
	SetActive(ctx context.Context, domain string, active bool) (*Entry, error)
}

// Checker answers "is this domain whitelisted" against both sources.
type Checker struct {
	static map[string]struct{}
	store  Store
	logger *observability.Logger
}

// NewChecker builds a checker over the static environment allow-list and the
// persisted store. Either source alone is sufficient to allow a domain.
func NewChecker(staticDomains []string, store Store, logger *observability.Logger) *Checker {
	static := make(map[string]struct{}, len(staticDomains))
	for _, d := range staticDomains {
		d = NormalizeDomain(d)
		if d != "" {
			static[d] = struct{}{}
		}
	}
	return &Checker{static: static, store: store, logger: logger}
}

// NormalizeDomain lowercases and trims a domain for comparison.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// IsAllowed reports whether the domain is in the static allow-list or has an
// active persisted row. A store error logs the fault and returns false; a
// lookup failure must never admit a domain.
func (c *Checker) IsAllowed(ctx context.Context, domain string) bool {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return false
	}
	if _, ok := c.static[domain]; ok {
		return true
	}
	if c.store == nil {
		return false
	}
	entry, err := c.store.Find(ctx, domain)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && c.logger != nil {
			c.logger.WithError(err).WithField("domain", domain).Error("whitelist lookup failed, denying")
		}
		return false
	}
	return entry.Active
}

// StaticDomains returns the configured static allow-list, for diagnostics.
func (c *Checker) StaticDomains() []string {
	out := make([]string, 0, len(c.static))
	for d := range c.static {
		out = append(out, d)
	}
	return out
}
