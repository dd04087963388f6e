package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the roles a platform user can hold. Values match the
// role claim carried inside issued tokens.
type Role string

const (
	RoleEstudiante    Role = "ESTUDIANTE"
	RoleProfesor      Role = "PROFESOR"
	RoleTutor         Role = "TUTOR"
	RoleAdministrador Role = "ADMINISTRADOR"
)

// ParseRole normalizes and validates a role string.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// Valid reports whether the role is one of the known enumeration values.
func (r Role) Valid() bool {
	switch r {
	case RoleEstudiante, RoleProfesor, RoleTutor, RoleAdministrador:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// User is the authentication view of a platform account. Business entity
// persistence (students, teachers, grades) lives outside this service.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	Active       bool
}

// Principal is the request-scoped identity attached after a successful
// authentication. It carries only what access decisions need.
type Principal struct {
	ID    int64
	Email string
	Name  string
	Role  Role
}

// IsAuthenticated reports whether the principal refers to a real account.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.ID != 0
}
