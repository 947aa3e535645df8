package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleOrdering(t *testing.T) {
	roles := AllRoles()
	require.Len(t, roles, 6)

	for i := 1; i < len(roles); i++ {
		assert.Greater(t, roles[i].Rank(), roles[i-1].Rank(),
			"%s must outrank %s", roles[i], roles[i-1])
	}

	// Every role admits itself and everything below it, and nothing above.
	for i, role := range roles {
		for j, min := range roles {
			assert.Equal(t, i >= j, role.AtLeast(min),
				"%s.AtLeast(%s)", role, min)
		}
	}
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "PENDING", RolePending.String())
	assert.Equal(t, "READ_ONLY", RoleReadOnly.String())
	assert.Equal(t, "USER", RoleUser.String())
	assert.Equal(t, "STAFF", RoleStaff.String())
	assert.Equal(t, "MANAGER", RoleManager.String())
	assert.Equal(t, "ADMIN", RoleAdmin.String())
	assert.Equal(t, "Role(42)", Role(42).String())
}

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles() {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("SUPERUSER")
	assert.Error(t, err)
	_, err = ParseRole("admin")
	assert.Error(t, err, "role names are case sensitive")
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleValid(t *testing.T) {
	for _, role := range AllRoles() {
		assert.True(t, role.Valid())
	}
	assert.False(t, Role(-1).Valid())
	assert.False(t, Role(6).Valid())
}

func TestRoleJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, `"STAFF"`, string(data))

	var role Role
	require.NoError(t, json.Unmarshal([]byte(`"MANAGER"`), &role))
	assert.Equal(t, RoleManager, role)

	assert.Error(t, json.Unmarshal([]byte(`"WIZARD"`), &role))

	_, err = json.Marshal(Role(99))
	assert.Error(t, err)
}
