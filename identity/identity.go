package identity

import (
	"context"

	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/permission"
)

// Identity is the resolved principal of a request: who the user is, which
// roles they hold, and the union of those roles' permissions.
type Identity struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`

	roles       *permission.Set
	permissions *permission.Set
}

// FromUser projects a user loaded with Roles.Permissions into an Identity.
// Role and permission names are de-duplicated in first-seen order.
func FromUser(u *models.User) *Identity {
	roles := permission.NewSet()
	perms := permission.NewSet()
	for i := range u.Roles {
		roles.Add(u.Roles[i].Name)
		perms.Add(u.Roles[i].PermissionNames()...)
	}
	return &Identity{
		UserID:      u.ID,
		Username:    u.Username,
		Roles:       roles.Slice(),
		Permissions: perms.Slice(),
		roles:       roles,
		permissions: perms,
	}
}

func (i *Identity) permissionSet() *permission.Set {
	if i.permissions == nil {
		i.permissions = permission.NewSet(i.Permissions...)
	}
	return i.permissions
}

func (i *Identity) roleSet() *permission.Set {
	if i.roles == nil {
		i.roles = permission.NewSet(i.Roles...)
	}
	return i.roles
}

// HasPermission reports whether the identity holds the named permission.
func (i *Identity) HasPermission(name string) bool {
	return i != nil && i.permissionSet().Has(name)
}

// HasRole reports whether the identity holds the named role.
func (i *Identity) HasRole(name string) bool {
	return i != nil && i.roleSet().Has(name)
}

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext returns the identity attached by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}
