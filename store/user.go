package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
)

// UserStore is the credential store: users and their role assignments.
type UserStore struct{ DB *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

// UserUpdate holds the optional fields of a profile update.
type UserUpdate struct {
	Email    *string
	Fullname *string
	IsActive *bool
}

func (s *UserStore) withRoles(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Preload("Roles", func(db *gorm.DB) *gorm.DB {
		return db.Order("roles.name ASC")
	}).Preload("Roles.Permissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("permissions.name ASC")
	})
}

// GetByID loads a user with roles and each role's permissions.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.withRoles(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// GetByUsername loads a user by username with roles and permissions.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.withRoles(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// GetByEmail loads a user by email with roles and permissions.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.withRoles(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Take(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// List returns all users ordered by username, with roles.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Preload("Roles").Order("username ASC").Find(&users).Error
	return users, err
}

// Create inserts u and assigns roleNames (the default role when none are
// given) in one transaction. Duplicate username or email is a conflict.
func (s *UserStore) Create(ctx context.Context, u *models.User, roleNames ...string) error {
	if len(roleNames) == 0 {
		roleNames = []string{models.DefaultRole}
	}
	if u.ID == "" {
		u.ID = models.NewID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.IsActive = true

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errors.ConflictError("username already exists")
		}
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(u.Email)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errors.ConflictError("email already exists")
		}

		roles, err := rolesByName(tx, roleNames)
		if err != nil {
			return err
		}
		if err := tx.Omit("Roles").Create(u).Error; err != nil {
			return translate(err, "user")
		}
		if err := linkRoles(tx, u.ID, roles); err != nil {
			return err
		}
		u.Roles = roles
		return nil
	})
}

// Update applies the non-nil fields of upd and returns the reloaded user.
func (s *UserStore) Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if upd.Email != nil {
		updates["email"] = strings.TrimSpace(*upd.Email)
	}
	if upd.Fullname != nil {
		updates["fullname"] = strings.TrimSpace(*upd.Fullname)
	}
	if upd.IsActive != nil {
		updates["is_active"] = *upd.IsActive
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if upd.Email != nil {
			var n int64
			if err := tx.Model(&models.User{}).
				Where("LOWER(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(*upd.Email)), id).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return errors.ConflictError("email already exists")
			}
		}
		return affected(tx.Model(&models.User{}).Where("id = ?", id).Updates(updates), "user")
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetActive flips the active flag. Inactive users fail identity resolution.
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now().UTC()})
	return affected(res, "user")
}

// UpdatePasswordHash stores a new password hash.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": time.Now().UTC()})
	return affected(res, "user")
}

// ReplaceRoles sets the user's role assignments to exactly roleNames.
func (s *UserStore) ReplaceRoles(ctx context.Context, userID string, roleNames []string) (*models.User, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errors.NotFoundError("user not found")
		}
		roles, err := rolesByName(tx, roleNames)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return linkRoles(tx, userID, roles)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// Delete removes the user and its role assignments.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&models.User{}), "user")
	})
}

func rolesByName(tx *gorm.DB, names []string) ([]models.Role, error) {
	uniq := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		uniq = append(uniq, n)
	}
	if len(uniq) == 0 {
		return nil, errors.ValidationError("at least one role is required")
	}
	var roles []models.Role
	if err := tx.Where("name IN ?", uniq).Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	if len(roles) != len(uniq) {
		found := make(map[string]bool, len(roles))
		for _, r := range roles {
			found[r.Name] = true
		}
		for _, n := range uniq {
			if !found[n] {
				return nil, errors.ValidationError("unknown role %s", n)
			}
		}
	}
	return roles, nil
}

func linkRoles(tx *gorm.DB, userID string, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	links := make([]models.UserRole, 0, len(roles))
	for _, r := range roles {
		links = append(links, models.UserRole{UserID: userID, RoleID: r.ID})
	}
	return tx.Create(&links).Error
}
