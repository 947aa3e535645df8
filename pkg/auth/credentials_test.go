package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials() []ServiceCredential {
	return []ServiceCredential{
		{
			Key:          "website-key",
			Name:         "website",
			RouteClasses: []RouteClass{RouteClassInternal},
			Origins:      []string{"http://localhost:*", "https://admin.alohawaii.travel"},
		},
		{
			Key:          "partner-key",
			Name:         "partner",
			RouteClasses: []RouteClass{RouteClassExternal},
		},
	}
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry([]ServiceCredential{{Key: "", Name: "empty"}})
	assert.ErrorIs(t, err, ErrEmptyCredential)

	_, err = NewRegistry([]ServiceCredential{
		{Key: "dup", Name: "a"},
		{Key: "dup", Name: "b"},
	})
	assert.ErrorIs(t, err, ErrDuplicateCredential)

	registry, err := NewRegistry(testCredentials())
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryResolve(t *testing.T) {
	registry, err := NewRegistry(testCredentials())
	require.NoError(t, err)

	cred := registry.Resolve("website-key")
	require.NotNil(t, cred)
	assert.Equal(t, "website", cred.Name)

	assert.Nil(t, registry.Resolve("unknown-key"))
	assert.Nil(t, registry.Resolve(""))
	assert.Nil(t, registry.Resolve("website-key "), "keys match exactly")
}

func TestAllowsRouteClass(t *testing.T) {
	registry, err := NewRegistry(testCredentials())
	require.NoError(t, err)

	website := registry.Resolve("website-key")
	assert.True(t, website.AllowsRouteClass(RouteClassInternal))
	assert.False(t, website.AllowsRouteClass(RouteClassExternal))

	partner := registry.Resolve("partner-key")
	assert.True(t, partner.AllowsRouteClass(RouteClassExternal))
	assert.False(t, partner.AllowsRouteClass(RouteClassInternal))
}

func TestOriginAllowed(t *testing.T) {
	registry, err := NewRegistry(testCredentials())
	require.NoError(t, err)
	website := registry.Resolve("website-key")
	partner := registry.Resolve("partner-key")

	tests := []struct {
		name    string
		cred    *ServiceCredential
		origin  string
		allowed bool
	}{
		{"empty origin allowed", website, "", true},
		{"wildcard port matches", website, "http://localhost:3000", true},
		{"wildcard port other port", website, "http://localhost:8443", true},
		{"wildcard port with path", website, "http://localhost:3000/page", true},
		{"wildcard requires port", website, "http://localhost", false},
		{"wildcard requires numeric port", website, "http://localhost:abc", false},
		{"wildcard host must match exactly", website, "http://localhost.evil.com:3000", false},
		{"exact prefix match", website, "https://admin.alohawaii.travel", true},
		{"prefix match with path", website, "https://admin.alohawaii.travel/settings", true},
		{"unlisted origin denied", website, "https://evil.example.com", false},
		{"no patterns allows all", partner, "https://anything.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, registry.OriginAllowed(tt.cred, tt.origin))
		})
	}
}
