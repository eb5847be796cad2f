package models

import "time"

// User is a principal of the annotation platform. PasswordHash holds a
// one-way hash and never leaves the process.
type User struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Username     string    `gorm:"column:username;uniqueIndex" json:"username"`
	Email        string    `gorm:"column:email;uniqueIndex" json:"email"`
	Fullname     string    `gorm:"column:fullname" json:"fullname"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"isActive"`
	Roles        []Role    `gorm:"many2many:user_roles" json:"roles,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// OwnerID a user account is owned by the user itself.
func (u *User) OwnerID() string { return u.ID }

// RoleNames returns the names of the loaded roles in load order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
