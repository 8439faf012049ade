package models

import (
	"fmt"
	"time"
)

// Role is the organizational role of a user.
type Role string

const (
	// RoleUser is an individual contributor.
	RoleUser Role = "user"
	// RoleSupervisor manages a team of individual contributors.
	RoleSupervisor Role = "supervisor"
	// RoleAdmin has organization-wide access.
	RoleAdmin Role = "admin"
)

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleSupervisor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsManager reports whether the role supervises other users' prospects.
func (r Role) IsManager() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// User represents an account in the user directory.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	SupervisorID *int      `json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
