package entity

// Permission names recognized by the engine.
const (
	PermManageWorkflow = "manage_workflow"
	RoleNameAdmin      = "admin"
)

// Permission is a single grant attached to a role.
type Permission struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Role groups permissions. Workflow steps and transitions reference
// roles by id to gate who may act.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// HasPermission reports whether the role carries a permission by name.
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// User is an acting principal, loaded with its role and the role's
// permissions so permission checks need no further reads.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	RoleID int64  `json:"role_id"`
	Role   *Role  `json:"role,omitempty"`
}

// IsAdmin reports whether the user's role is the admin role.
func (u *User) IsAdmin() bool {
	return u.Role != nil && u.Role.Name == RoleNameAdmin
}
