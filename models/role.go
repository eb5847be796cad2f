package models

// Seeded role names
const (
	RoleAdmin  = "ADMIN"
	RoleDoctor = "DOCTOR"
	RoleViewer = "VIEWER"
)

// DefaultRole is assigned to every self-registered user.
const DefaultRole = RoleViewer

// Role is a named bundle of permissions.
type Role struct {
	ID          string       `gorm:"column:id;primaryKey" json:"id"`
	Name        string       `gorm:"column:name;uniqueIndex" json:"name"`
	Description string       `gorm:"column:description" json:"description,omitempty"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

func (Role) TableName() string { return "roles" }

// PermissionNames returns the names of the loaded permissions.
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// Permission is an atomic capability, e.g. CREATE_SAMPLE. The set is fixed by seed data.
type Permission struct {
	ID          string `gorm:"column:id;primaryKey" json:"id"`
	Name        string `gorm:"column:name;uniqueIndex" json:"name"`
	Description string `gorm:"column:description" json:"description,omitempty"`
}

func (Permission) TableName() string { return "permissions" }

// UserRole links user to role
type UserRole struct {
	UserID string `gorm:"column:user_id;primaryKey"`
	RoleID string `gorm:"column:role_id;primaryKey"`
}

func (UserRole) TableName() string { return "user_roles" }

// RolePermission links role to permission
type RolePermission struct {
	RoleID       string `gorm:"column:role_id;primaryKey"`
	PermissionID string `gorm:"column:permission_id;primaryKey"`
}

func (RolePermission) TableName() string { return "role_permissions" }
