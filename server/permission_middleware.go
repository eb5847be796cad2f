package server

import (
	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/identity"
)

// RequirePermissions returns a middleware that lets the request through only
// when the caller holds every listed permission.
// It expects Authenticate to have run; without an identity it answers 401.
func (s *Server) RequirePermissions(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := identity.FromContext(c.Request.Context())
		if err := identity.Authorize(id, perms...); err != nil {
			s.denied(c, err)
			return
		}
		c.Next()
	}
}

// RequireRoles returns a middleware that lets the request through when the
// caller holds at least one of the listed roles.
func (s *Server) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := identity.FromContext(c.Request.Context())
		if err := identity.HasRole(id, roles...); err != nil {
			s.denied(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) denied(c *gin.Context, err error) {
	if errors.Is(err, errors.ErrAuthorization) {
		s.Metrics.observe(OutcomePermissionDeny)
	}
	abort(c, err)
}

// currentIdentity returns the identity set by Authenticate or records a 401.
func currentIdentity(c *gin.Context) (*identity.Identity, bool) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		abort(c, errors.AuthenticationError(""))
	}
	return id, ok
}
