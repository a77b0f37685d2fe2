// Package types define tipos de dominio compartidos entre paquetes.
package types

// UserRole representa el rol de un usuario dentro de una plataforma.
type UserRole string

const (
	// RoleAdmin puede administrar la plataforma y sus miembros.
	RoleAdmin UserRole = "admin"
	// RoleMember es el rol por defecto de un miembro.
	RoleMember UserRole = "member"
	// RoleBanned bloquea el acceso a la plataforma.
	RoleBanned UserRole = "banned"
)

// IsValid retorna true si el rol es válido.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleBanned:
		return true
	}
	return false
}

// HasRole verifica si un slice de roles contiene el rol dado.
func HasRole(roles []UserRole, want UserRole) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// RolesIntersect retorna true si hay al menos un rol en común.
func RolesIntersect(have, want []UserRole) bool {
	if len(have) == 0 || len(want) == 0 {
		return false
	}
	set := make(map[UserRole]struct{}, len(have))
	for _, r := range have {
		set[r] = struct{}{}
	}
	for _, r := range want {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
