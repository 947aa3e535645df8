package auth

import "fmt"

// Role is the privilege level assigned to an account. Roles form a total
// order: Pending < ReadOnly < User < Staff < Manager < Admin. Route handlers
// declare a minimum role and admit any caller whose role ranks at or above it.
type Role int

const (
	// RolePending is assigned to newly provisioned accounts. It carries no
	// access to internal routes until an administrator promotes the account.
	RolePending Role = iota
	// RoleReadOnly grants read access to internal routes.
	RoleReadOnly
	// RoleUser grants standard member access.
	RoleUser
	// RoleStaff grants tour management access.
	RoleStaff
	// RoleManager grants operational management access.
	RoleManager
	// RoleAdmin grants full access, including account and whitelist
	// administration.
	RoleAdmin
)

var roleNames = [...]string{
	RolePending:  "PENDING",
	RoleReadOnly: "READ_ONLY",
	RoleUser:     "USER",
	RoleStaff:    "STAFF",
	RoleManager:  "MANAGER",
	RoleAdmin:    "ADMIN",
}

// AllRoles returns every defined role in ascending rank order.
func AllRoles() []Role {
	return []Role{RolePending, RoleReadOnly, RoleUser, RoleStaff, RoleManager, RoleAdmin}
}

// Valid reports whether r is a defined role.
func (r Role) Valid() bool {
	return r >= RolePending && r <= RoleAdmin
}

// Rank returns the numeric rank used for minimum-privilege comparisons.
func (r Role) Rank() int {
	return int(r)
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// String returns the canonical persisted name of the role.
func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// ParseRole converts a persisted role name into a Role. Unknown names are an
// error, never a silently usable role.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return Role(role), nil
		}
	}
	return RolePending, fmt.Errorf("auth: unknown role %q", name)
}

// MarshalText implements encoding.TextMarshaler so roles serialize as their
// canonical names in JSON payloads.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("auth: cannot marshal invalid role %d", int(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
