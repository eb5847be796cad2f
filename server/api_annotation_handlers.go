package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/permission"
	"github.com/medhist/annotation-iam/store"
)

type annotationRequest struct {
	AnnotationData json.RawMessage `json:"annotationData"`
	X              *float64        `json:"x"`
	Y              *float64        `json:"y"`
	Width          *float64        `json:"width"`
	Height         *float64        `json:"height"`
	Type           *string         `json:"type"`
	Text           *string         `json:"text"`
}

func (r *annotationRequest) validate() error {
	if r.Type != nil && !models.IsValidAnnotationType(*r.Type) {
		return errors.ValidationError("type %q is not a known annotation type", *r.Type)
	}
	if (r.Width != nil && *r.Width < 0) || (r.Height != nil && *r.Height < 0) {
		return errors.ValidationError("width and height must not be negative")
	}
	if len(r.AnnotationData) > 0 && !json.Valid(r.AnnotationData) {
		return errors.ValidationError("annotationData must be JSON")
	}
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (s *Server) HandleAPIListAnnotationsGin(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.Samples.Get(ctx, c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	out, err := s.Annotations.ListBySample(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	if out == nil {
		out = []models.ImageAnnotation{}
	}
	c.JSON(http.StatusOK, out)
}

// HandleAPICreateAnnotationGin draws a new annotation owned by the caller.
func (s *Server) HandleAPICreateAnnotationGin(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var payload annotationRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	if payload.Type == nil {
		abort(c, errors.ValidationError("type is required"))
		return
	}
	if err := payload.validate(); err != nil {
		abort(c, err)
		return
	}
	ctx := c.Request.Context()
	sample, err := s.Samples.Get(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	m := &models.ImageAnnotation{
		SampleID:       sample.ID,
		CreatedBy:      id.UserID,
		AnnotationData: payload.AnnotationData,
		X:              deref(payload.X),
		Y:              deref(payload.Y),
		Width:          deref(payload.Width),
		Height:         deref(payload.Height),
		Type:           *payload.Type,
	}
	if payload.Text != nil {
		m.Text = *payload.Text
	}
	if err := s.Annotations.Create(ctx, m); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ownedAnnotation loads the annotation addressed by the path and checks that
// the caller created it. On failure the error is already recorded.
func (s *Server) ownedAnnotation(c *gin.Context) (*models.ImageAnnotation, string, bool) {
	id, ok := currentIdentity(c)
	if !ok {
		return nil, "", false
	}
	m, err := s.Annotations.Get(c.Request.Context(), c.Param("id"), c.Param("annotationId"))
	if err != nil {
		abort(c, err)
		return nil, "", false
	}
	if err := permission.AssertOwner(m, id.UserID); err != nil {
		s.ownershipDenied(c, err, m.OwnerID(), id.UserID)
		return nil, "", false
	}
	return m, id.UserID, true
}

// HandleAPIUpdateAnnotationGin edits an annotation; only its creator may.
func (s *Server) HandleAPIUpdateAnnotationGin(c *gin.Context) {
	var payload annotationRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	if err := payload.validate(); err != nil {
		abort(c, err)
		return
	}
	m, userID, ok := s.ownedAnnotation(c)
	if !ok {
		return
	}
	updated, err := s.Annotations.UpdateOwned(c.Request.Context(), m.ID, userID, store.AnnotationUpdate{
		AnnotationData: payload.AnnotationData,
		X:              payload.X,
		Y:              payload.Y,
		Width:          payload.Width,
		Height:         payload.Height,
		Type:           payload.Type,
		Text:           payload.Text,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleAPIDeleteAnnotationGin removes an annotation; only its creator may.
func (s *Server) HandleAPIDeleteAnnotationGin(c *gin.Context) {
	m, userID, ok := s.ownedAnnotation(c)
	if !ok {
		return
	}
	if err := s.Annotations.DeleteOwned(c.Request.Context(), m.ID, userID); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
