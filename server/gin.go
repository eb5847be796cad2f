package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/permission"
)

// NewGinEngine builds a Gin router and registers every API route with its gates.
func NewGinEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.Log))
	r.Use(s.Metrics.Instrument())
	r.Use(corsMiddleware(s.Config.AllowedOrigins))
	r.Use(ErrorHandler(s.Log))

	r.NoRoute(func(c *gin.Context) {
		abort(c, errors.NotFoundError("Route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
			"error":             "method_not_allowed",
			"error_description": "Method not allowed",
		})
	})

	r.GET("/health", s.HandleHealthGin)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	api := r.Group("/api")
	api.Use(NewRateLimiter(s.Config.RateLimit).Middleware())

	// Public
	api.POST("/auth/login", s.HandleAPILoginGin)
	api.POST("/auth/refresh-token", s.HandleAPIRefreshTokenGin)
	api.POST("/users/register", s.HandleAPIRegisterUserGin)

	// Authenticated
	authed := api.Group("")
	authed.Use(s.Authenticate())

	authed.POST("/auth/logout", s.HandleAPILogoutGin)
	authed.GET("/auth/profile", s.HandleAPIProfileGin)
	authed.GET("/auth/permissions", s.HandleAPIPermissionsGin)

	manageUsers := s.RequirePermissions(permission.ManageUsers)
	authed.GET("/users", manageUsers, s.HandleAPIListUsersGin)
	authed.POST("/users", manageUsers, s.HandleAPICreateUserGin)
	authed.GET("/users/:id", manageUsers, s.HandleAPIGetUserGin)
	authed.PUT("/users/:id", manageUsers, s.HandleAPIUpdateUserGin)
	authed.DELETE("/users/:id", manageUsers, s.HandleAPIDeleteUserGin)
	authed.PUT("/users/:id/roles", manageUsers, s.HandleAPIReplaceUserRolesGin)
	authed.PUT("/users/:id/change-password", s.HandleAPIChangePasswordGin)

	admin := s.RequireRoles(models.RoleAdmin)
	authed.GET("/roles", admin, s.HandleAPIListRolesGin)
	authed.GET("/permissions", admin, s.HandleAPIListPermissionsGin)
	authed.PUT("/roles/:id/permissions", admin, s.RequirePermissions(permission.ManageRoles), s.HandleAPIReplaceRolePermissionsGin)

	view := s.RequirePermissions(permission.ViewSamples)
	authed.GET("/samples", view, s.HandleAPIListSamplesGin)
	authed.GET("/samples/:id", view, s.HandleAPIGetSampleGin)
	authed.POST("/samples", s.RequirePermissions(permission.CreateSample), s.HandleAPICreateSampleGin)
	authed.PUT("/samples/:id", s.RequirePermissions(permission.EditSample), s.HandleAPIUpdateSampleGin)
	authed.DELETE("/samples/:id", s.RequirePermissions(permission.DeleteSample), s.HandleAPIDeleteSampleGin)

	authed.GET("/samples/:id/annotations", view, s.HandleAPIListAnnotationsGin)
	authed.POST("/samples/:id/annotations", s.RequirePermissions(permission.CreateAnnotation), s.HandleAPICreateAnnotationGin)
	authed.PUT("/samples/:id/annotations/:annotationId", s.RequirePermissions(permission.CreateAnnotation), s.HandleAPIUpdateAnnotationGin)
	authed.DELETE("/samples/:id/annotations/:annotationId", s.RequirePermissions(permission.DeleteAnnotation), s.HandleAPIDeleteAnnotationGin)

	authed.GET("/samples/:id/form-details", view, s.HandleAPIGetFormDetailsGin)
	authed.POST("/samples/:id/form-details", s.RequirePermissions(permission.ManageForms), s.HandleAPIUpsertFormDetailsGin)

	manageTissue := s.RequirePermissions(permission.ManageTissueTypes)
	authed.GET("/tissue-types", view, s.HandleAPIListTissueTypesGin)
	authed.GET("/tissue-types/:id", view, s.HandleAPIGetTissueTypeGin)
	authed.POST("/tissue-types", manageTissue, s.HandleAPICreateTissueTypeGin)
	authed.PUT("/tissue-types/:id", manageTissue, s.HandleAPIUpdateTissueTypeGin)
	authed.DELETE("/tissue-types/:id", manageTissue, s.HandleAPIDeleteTissueTypeGin)

	return r
}

// requestLogger logs one line per request after it completes.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if id, ok := identity.FromContext(c.Request.Context()); ok {
			fields["user_id"] = id.UserID
		}
		log.WithFields(fields).Info("request")
	}
}

// corsMiddleware answers preflight requests and sets CORS headers for the
// allowed origins. "*" allows any origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				h.Set("Access-Control-Max-Age", "600")
				h.Add("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
