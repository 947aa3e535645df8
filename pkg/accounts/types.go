package accounts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alohawaii-travel/api/pkg/auth"
)

// Account is one internal user account, keyed by globally unique email.
type Account struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Role        auth.Role  `json:"role"`
	Active      bool       `json:"active"`
	Domain      string     `json:"domain"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Identity is the verified payload produced by the identity provider:
// everything the lifecycle controller needs, nothing provider-specific.
type Identity struct {
	// Subject is the provider's stable user identifier.
	Subject string
	// Email is the verified email address.
	Email string
	// DisplayName is the provider-reported name, may be empty.
	DisplayName string
	// AvatarURL is the provider-reported picture, may be empty.
	AvatarURL string
	// HostedDomain is the workspace domain claim when the provider sends
	// one; preferred over parsing the email.
	HostedDomain string
}

// ErrMalformedEmail rejects an email without exactly one @ separator.
var ErrMalformedEmail = errors.New("accounts: malformed email address")

// DomainFromEmail extracts the domain part of an email. Exactly one @ is
// required; zero or multiple @ characters reject the address outright.
func DomainFromEmail(email string) (string, error) {
	if strings.Count(email, "@") != 1 {
		return "", ErrMalformedEmail
	}
	at := strings.IndexByte(email, '@')
	local, domain := email[:at], email[at+1:]
	if local == "" || domain == "" {
		return "", ErrMalformedEmail
	}
	return strings.ToLower(domain), nil
}

// NormalizeEmail lowercases and trims an email for unique-key comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Account) String() string {
	return fmt.Sprintf("Account(%s %s role=%s active=%t)", a.ID, a.Email, a.Role, a.Active)
}
