package model

// Role is the caller's role as asserted by the upstream auth layer.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleStaff || r == RoleAdmin
}

// Actor identifies who is performing an action. The engine trusts this input
// and only checks role appropriateness and reserver identity.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Staff reports whether the actor holds staff or admin privileges.
func (a Actor) Staff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}
