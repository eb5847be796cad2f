package server

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/dto"
	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/permission"
	"github.com/medhist/annotation-iam/store"
)

const minPasswordLength = 6

type createUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Fullname string   `json:"fullname"`
	Roles    []string `json:"roles"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Fullname *string `json:"fullname"`
	IsActive *bool   `json:"isActive"`
}

type replaceRolesRequest struct {
	Roles []string `json:"roles"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *createUserRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Fullname = strings.TrimSpace(r.Fullname)
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return errors.ValidationError("username, email and password are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.ValidationError("email is invalid")
	}
	if len(r.Password) < minPasswordLength {
		return errors.ValidationError("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// createUser hashes the password and stores the account. withRoles honours
// the roles of the body; otherwise the default role is assigned.
func (s *Server) createUser(c *gin.Context, withRoles bool) {
	var payload createUserRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	if err := payload.validate(); err != nil {
		abort(c, err)
		return
	}
	var roles []string
	if withRoles {
		roles = payload.Roles
	}
	hash, err := s.Passwords.Hash(payload.Password)
	if err != nil {
		abort(c, err)
		return
	}
	u := &models.User{
		Username:     payload.Username,
		Email:        payload.Email,
		Fullname:     payload.Fullname,
		PasswordHash: hash,
	}
	if err := s.Users.Create(c.Request.Context(), u, roles...); err != nil {
		abort(c, err)
		return
	}
	s.Log.WithField("user_id", u.ID).Info("user created")
	c.JSON(http.StatusCreated, dto.FromUser(u))
}

// HandleAPIRegisterUserGin creates a self-registered account with the
// default role. Roles in the body are ignored.
func (s *Server) HandleAPIRegisterUserGin(c *gin.Context) {
	s.createUser(c, false)
}

// HandleAPICreateUserGin creates an account with the roles given in the body.
func (s *Server) HandleAPICreateUserGin(c *gin.Context) {
	s.createUser(c, true)
}

func (s *Server) HandleAPIListUsersGin(c *gin.Context) {
	users, err := s.Users.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUsers(users))
}

func (s *Server) HandleAPIGetUserGin(c *gin.Context) {
	u, err := s.Users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUser(u))
}

// HandleAPIUpdateUserGin updates profile fields; isActive=false deactivates
// the account, which makes its tokens fail identity resolution.
func (s *Server) HandleAPIUpdateUserGin(c *gin.Context) {
	var payload updateUserRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	if payload.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*payload.Email)); err != nil {
			abort(c, errors.ValidationError("email is invalid"))
			return
		}
	}
	u, err := s.Users.Update(c.Request.Context(), c.Param("id"), store.UserUpdate{
		Email:    payload.Email,
		Fullname: payload.Fullname,
		IsActive: payload.IsActive,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUser(u))
}

func (s *Server) HandleAPIDeleteUserGin(c *gin.Context) {
	if err := s.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAPIReplaceUserRolesGin sets the user's roles to exactly the names given.
func (s *Server) HandleAPIReplaceUserRolesGin(c *gin.Context) {
	var payload replaceRolesRequest
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload.Roles) == 0 {
		abort(c, errors.ValidationError("roles is required"))
		return
	}
	u, err := s.Users.ReplaceRoles(c.Request.Context(), c.Param("id"), payload.Roles)
	if err != nil {
		abort(c, err)
		return
	}
	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "roles": u.RoleNames()}).Info("user roles replaced")
	c.JSON(http.StatusOK, dto.FromUser(u))
}

// HandleAPIChangePasswordGin lets a user change their own password. Every
// token issued to the user before the change stops working.
func (s *Server) HandleAPIChangePasswordGin(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var payload changePasswordRequest
	if err := c.ShouldBindJSON(&payload); err != nil || payload.CurrentPassword == "" || payload.NewPassword == "" {
		abort(c, errors.ValidationError("currentPassword and newPassword are required"))
		return
	}
	if len(payload.NewPassword) < minPasswordLength {
		abort(c, errors.ValidationError("password must be at least %d characters", minPasswordLength))
		return
	}

	ctx := c.Request.Context()
	u, err := s.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	if err := permission.AssertOwner(u, id.UserID); err != nil {
		s.ownershipDenied(c, err, u.OwnerID(), id.UserID)
		return
	}
	if err := s.Passwords.Compare(u.PasswordHash, payload.CurrentPassword); err != nil {
		abort(c, errors.Wrap(errors.ErrValidation, "Current password is incorrect", err))
		return
	}
	hash, err := s.Passwords.Hash(payload.NewPassword)
	if err != nil {
		abort(c, err)
		return
	}
	if err := s.Users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		abort(c, err)
		return
	}
	if s.Revocations != nil {
		if err := s.Revocations.RevokeUser(ctx, u.ID, s.now()); err != nil {
			abort(c, err)
			return
		}
	}
	s.Log.WithField("user_id", u.ID).Info("password changed")
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// ownershipDenied records an audit entry for a refused change and answers 403.
func (s *Server) ownershipDenied(c *gin.Context, err error, ownerID, actingID string) {
	s.Metrics.observe(OutcomeOwnershipDeny)
	s.Log.WithFields(logrus.Fields{
		"acting_user_id": actingID,
		"owner_id":       ownerID,
		"path":           c.FullPath(),
	}).Warn("ownership check failed")
	abort(c, err)
}
