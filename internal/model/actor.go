package model

// Role is the resolved role of the acting user.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may operate the kitchen side of the system.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Actor is the identity performing an operation, as resolved by the identity provider.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
