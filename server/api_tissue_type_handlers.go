package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
)

type tissueTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *tissueTypeRequest) bind(c *gin.Context) error {
	if err := c.ShouldBindJSON(r); err != nil {
		return errors.ValidationError("invalid JSON payload")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.ValidationError("name is required")
	}
	return nil
}

func (s *Server) HandleAPIListTissueTypesGin(c *gin.Context) {
	out, err := s.TissueTypes.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	if out == nil {
		out = []models.TissueType{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) HandleAPIGetTissueTypeGin(c *gin.Context) {
	m, err := s.TissueTypes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) HandleAPICreateTissueTypeGin(c *gin.Context) {
	var payload tissueTypeRequest
	if err := payload.bind(c); err != nil {
		abort(c, err)
		return
	}
	m := &models.TissueType{Name: payload.Name, Description: payload.Description}
	if err := s.TissueTypes.Create(c.Request.Context(), m); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) HandleAPIUpdateTissueTypeGin(c *gin.Context) {
	var payload tissueTypeRequest
	if err := payload.bind(c); err != nil {
		abort(c, err)
		return
	}
	m, err := s.TissueTypes.Update(c.Request.Context(), c.Param("id"), payload.Name, payload.Description)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleAPIDeleteTissueTypeGin fails with 409 while samples still reference the type.
func (s *Server) HandleAPIDeleteTissueTypeGin(c *gin.Context) {
	if err := s.TissueTypes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
