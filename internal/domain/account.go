package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an account's authorization level.
type Role string

const (
	RoleStandard      Role = "STANDARD"
	RoleAdministrator Role = "ADMINISTRATOR"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleStandard, RoleAdministrator:
		return true
	}
	return false
}

func (r Role) IsAdministrator() bool { return r == RoleAdministrator }

func ParseRoleFromString(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return role, nil
}

// Account is an identity owned by the external account directory.
// The engine only reads it.
type Account struct {
	ID          string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}
