package domain

import (
	"strings"
	"time"
)

// Role is the closed set of roles an identity can hold.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// DefaultRole is assigned on self-registration.
const DefaultRole = RoleBuyer

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleBuyer, RoleSeller, RoleAdmin}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts untrusted input to a Role, rejecting anything outside
// buyer|seller|admin.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", NewValidationError("role must be one of: buyer seller admin")
	}
	return r, nil
}

// NormalizeEmail trims and lower-cases an address. Every lookup and insert
// goes through it, so uniqueness holds on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is a registered principal.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Redacted returns a copy with the password hash removed.
func (i *Identity) Redacted() *Identity {
	if i == nil {
		return nil
	}
	clone := *i
	clone.PasswordHash = ""
	return &clone
}

// HasRole reports whether the identity holds one of roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// IdentityUpdate carries the fields a single UpdateFields call may set.
// Nil fields are left untouched.
type IdentityUpdate struct {
	Name         *string
	PasswordHash *string
	Role         *Role

	// UnlessRole, when set, makes the update a no-op returning
	// ErrProtectedIdentity if the stored record holds this role.
	UnlessRole Role
}

// Empty reports whether the update would change nothing.
func (u IdentityUpdate) Empty() bool {
	return u.Name == nil && u.PasswordHash == nil && u.Role == nil
}
