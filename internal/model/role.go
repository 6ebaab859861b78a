package model

// Role is the authorization level of a user.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Satisfies reports whether r grants at least the required role.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleEmployee:
		return r.Valid()
	case RoleAdmin:
		return r == RoleAdmin
	default:
		return false
	}
}
