package types

import (
	"slices"
	"time"
)

// Role is an authorization role granted to a user.
type Role string

// Supported roles.
const (
	// RoleUser is granted to every registered account.
	RoleUser Role = "ROLE_USER"

	// RoleAdmin grants access to user management.
	RoleAdmin Role = "ROLE_ADMIN"
)

// Valid reports whether the role is one of the supported roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account in the system.
// It contains identity, roles, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the unique address the user signs in with.
	Email string `json:"email" db:"email"`

	// Roles is the set of roles granted to the user.
	Roles []Role `json:"roles" db:"roles"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user has been granted role.
func (u User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// IsAdmin reports whether the user holds ROLE_ADMIN.
func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// NormalizeRoles returns roles deduplicated and sorted, always including
// RoleUser.
func NormalizeRoles(roles []Role) []Role {
	out := []Role{RoleUser}
	for _, role := range roles {
		if role.Valid() && !slices.Contains(out, role) {
			out = append(out, role)
		}
	}
	slices.Sort(out)
	return out
}

// DeletionSummary reports how many dependents were removed together with a user.
type DeletionSummary struct {
	// Notes is the number of notes deleted.
	Notes int64 `json:"notes"`

	// Tasks is the number of tasks deleted.
	Tasks int64 `json:"tasks"`
}

// Total returns the number of deleted rows, the user included.
func (s DeletionSummary) Total() int64 {
	return s.Notes + s.Tasks + 1
}
