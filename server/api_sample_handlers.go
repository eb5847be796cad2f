package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/store"
)

type sampleRequest struct {
	Code         *string `json:"code"`
	Description  *string `json:"description"`
	IsScanned    *bool   `json:"isScanned"`
	TissueTypeID *string `json:"tissueTypeId"`
	DziPath      *string `json:"dziPath"`
}

func (s *Server) HandleAPIListSamplesGin(c *gin.Context) {
	samples, err := s.Samples.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	if samples == nil {
		samples = []models.Sample{}
	}
	c.JSON(http.StatusOK, samples)
}

func (s *Server) HandleAPIGetSampleGin(c *gin.Context) {
	m, err := s.Samples.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleAPICreateSampleGin creates a sample recorded as created by the caller.
func (s *Server) HandleAPICreateSampleGin(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var payload sampleRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	if payload.Code == nil || strings.TrimSpace(*payload.Code) == "" {
		abort(c, errors.ValidationError("code is required"))
		return
	}
	m := &models.Sample{
		Code:         strings.TrimSpace(*payload.Code),
		TissueTypeID: payload.TissueTypeID,
		CreatedBy:    id.UserID,
	}
	if payload.Description != nil {
		m.Description = *payload.Description
	}
	if payload.IsScanned != nil {
		m.IsScanned = *payload.IsScanned
	}
	if payload.DziPath != nil {
		m.DziPath = *payload.DziPath
	}
	if err := s.Samples.Create(c.Request.Context(), m); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) HandleAPIUpdateSampleGin(c *gin.Context) {
	var payload sampleRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	if payload.Code != nil && strings.TrimSpace(*payload.Code) == "" {
		abort(c, errors.ValidationError("code must not be empty"))
		return
	}
	m, err := s.Samples.Update(c.Request.Context(), c.Param("id"), store.SampleUpdate{
		Code:         payload.Code,
		Description:  payload.Description,
		IsScanned:    payload.IsScanned,
		TissueTypeID: payload.TissueTypeID,
		DziPath:      payload.DziPath,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleAPIDeleteSampleGin removes a sample with its form and annotations.
func (s *Server) HandleAPIDeleteSampleGin(c *gin.Context) {
	if err := s.Samples.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
