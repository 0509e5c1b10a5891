package model

import (
	"strings"
	"time"
)

// Role is the access level granted to an identity.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalizes a role claim such as "admin" or "ROLE_ADMIN".
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	return Role(strings.TrimPrefix(s, "ROLE_"))
}

// User is an identity that documents can be attributed to.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
