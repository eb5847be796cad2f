package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/permission"
)

// RoleStore reads the role/permission graph and replaces role grants.
type RoleStore struct{ DB *gorm.DB }

func NewRoleStore(db *gorm.DB) *RoleStore { return &RoleStore{DB: db} }

// List returns every role with its permissions, ordered by name.
func (s *RoleStore) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.DB.WithContext(ctx).
		Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permissions.name ASC") }).
		Order("name ASC").Find(&roles).Error
	return roles, err
}

// GetByID loads a role with its permissions.
func (s *RoleStore) GetByID(ctx context.Context, id string) (*models.Role, error) {
	var r models.Role
	err := s.DB.WithContext(ctx).Preload("Permissions").Where("id = ?", id).Take(&r).Error
	if err != nil {
		return nil, translate(err, "role")
	}
	return &r, nil
}

// GetByName loads a role by its unique name.
func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	err := s.DB.WithContext(ctx).Preload("Permissions").
		Where("name = ?", strings.ToUpper(strings.TrimSpace(name))).Take(&r).Error
	if err != nil {
		return nil, translate(err, "role")
	}
	return &r, nil
}

// ListPermissions returns the permission catalogue as stored.
func (s *RoleStore) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}

// ReplacePermissions sets the role's grants to exactly names. Every name must
// exist in the catalogue. The change is visible on the next request of every
// holder because identities are never cached.
func (s *RoleStore) ReplacePermissions(ctx context.Context, roleID string, names []string) (*models.Role, error) {
	set := permission.NewSet()
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if !permission.IsKnown(n) {
			return nil, errors.ValidationError("unknown permission %s", n)
		}
		set.Add(n)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Role{}).Where("id = ?", roleID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errors.NotFoundError("role not found")
		}
		var perms []models.Permission
		if set.Len() > 0 {
			if err := tx.Where("name IN ?", set.Slice()).Find(&perms).Error; err != nil {
				return err
			}
			if len(perms) != set.Len() {
				return errors.ValidationError("permission catalogue is missing seeded entries")
			}
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if len(perms) == 0 {
			return nil
		}
		links := make([]models.RolePermission, 0, len(perms))
		for _, p := range perms {
			links = append(links, models.RolePermission{RoleID: roleID, PermissionID: p.ID})
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, roleID)
}
