package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/errors"
)

type roleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

type replacePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// HandleAPIListRolesGin lists every role with its permission names.
func (s *Server) HandleAPIListRolesGin(c *gin.Context) {
	roles, err := s.Roles.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, roleResponse{
			ID:          roles[i].ID,
			Name:        roles[i].Name,
			Description: roles[i].Description,
			Permissions: roles[i].PermissionNames(),
		})
	}
	c.JSON(http.StatusOK, out)
}

// HandleAPIListPermissionsGin lists the permission catalogue as stored.
func (s *Server) HandleAPIListPermissionsGin(c *gin.Context) {
	perms, err := s.Roles.ListPermissions(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// HandleAPIReplaceRolePermissionsGin sets the role's permissions to exactly
// the names given. Unknown names are rejected.
func (s *Server) HandleAPIReplaceRolePermissionsGin(c *gin.Context) {
	var payload replacePermissionsRequest
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Permissions == nil {
		abort(c, errors.ValidationError("permissions is required"))
		return
	}
	role, err := s.Roles.ReplacePermissions(c.Request.Context(), c.Param("id"), payload.Permissions)
	if err != nil {
		abort(c, err)
		return
	}
	s.Log.WithField("role", role.Name).Info("role permissions replaced")
	c.JSON(http.StatusOK, roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: role.PermissionNames(),
	})
}
