package domain

import "slices"

// Role is a user's authorization level.
type Role string

// Role constants define the allowed user roles. Every new account is a
// writer; moderators and admins may act on resources they do not own.
const (
	RoleWriter    Role = "writer"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []Role {
	return []Role{RoleWriter, RoleModerator, RoleAdmin}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(ValidRoles(), r)
}

// Elevated reports whether r may mutate resources owned by other users.
func (r Role) Elevated() bool {
	return r == RoleModerator || r == RoleAdmin
}
