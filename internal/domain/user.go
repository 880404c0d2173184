package domain

import "time"

// Role is the authorization class of an actor.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleRegistrar  Role = "registrar"
	RoleSupervisor Role = "supervisor"
	RoleAssistant  Role = "assistant"
)

// Valid reports whether the role is one of the known classes.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleRegistrar, RoleSupervisor, RoleAssistant:
		return true
	}
	return false
}

// Assignable reports whether a user with this role may be designated as a
// case assignee. Supervisors assign but are never assignees themselves.
func (r Role) Assignable() bool {
	return r.Valid() && r != RoleSupervisor
}

// User is a known identity in the registry office.
type User struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	Role         Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Actor is the request-scoped identity performing an operation, resolved
// from credentials by the identity provider and passed explicitly into
// every engine call.
type Actor struct {
	ID   string
	Name string
	Role Role
}
