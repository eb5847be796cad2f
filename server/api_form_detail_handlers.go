package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
)

type formDetailRequest struct {
	PatientName        string   `json:"patientName"`
	BirthDate          string   `json:"birthDate"`
	PatientID          string   `json:"patientId"`
	ProcedureDate      string   `json:"procedureDate"`
	SampleType         string   `json:"sampleType"`
	AnatomicalLocation string   `json:"anatomicalLocation"`
	Dimensions         string   `json:"dimensions"`
	Texture            string   `json:"texture"`
	CellType           string   `json:"cellType"`
	Ki67Index          *float64 `json:"ki67Index"`
	Her2Status         string   `json:"her2Status"`
	BrcaType           string   `json:"brcaType"`
	TNMClassification  string   `json:"tnmClassification"`
	Recommendations    string   `json:"recommendations"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp; empty is nil.
func parseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, errors.ValidationError("%s must be a date (YYYY-MM-DD)", field)
}

func (r *formDetailRequest) toModel(sampleID string) (*models.FormDetail, error) {
	if strings.TrimSpace(r.PatientName) == "" || strings.TrimSpace(r.PatientID) == "" {
		return nil, errors.ValidationError("patientName and patientId are required")
	}
	if r.Ki67Index != nil && (*r.Ki67Index < 0 || *r.Ki67Index > 100) {
		return nil, errors.ValidationError("ki67Index must be between 0 and 100")
	}
	birth, err := parseDate("birthDate", r.BirthDate)
	if err != nil {
		return nil, err
	}
	procedure, err := parseDate("procedureDate", r.ProcedureDate)
	if err != nil {
		return nil, err
	}
	return &models.FormDetail{
		SampleID:           sampleID,
		PatientName:        strings.TrimSpace(r.PatientName),
		BirthDate:          birth,
		PatientID:          strings.TrimSpace(r.PatientID),
		ProcedureDate:      procedure,
		SampleType:         r.SampleType,
		AnatomicalLocation: r.AnatomicalLocation,
		Dimensions:         r.Dimensions,
		Texture:            r.Texture,
		CellType:           r.CellType,
		Ki67Index:          r.Ki67Index,
		Her2Status:         r.Her2Status,
		BrcaType:           r.BrcaType,
		TNMClassification:  r.TNMClassification,
		Recommendations:    r.Recommendations,
	}, nil
}

func (s *Server) HandleAPIGetFormDetailsGin(c *gin.Context) {
	m, err := s.FormDetails.GetBySample(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleAPIUpsertFormDetailsGin creates or replaces the form of a sample.
func (s *Server) HandleAPIUpsertFormDetailsGin(c *gin.Context) {
	var payload formDetailRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	ctx := c.Request.Context()
	sample, err := s.Samples.Get(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	m, err := payload.toModel(sample.ID)
	if err != nil {
		abort(c, err)
		return
	}
	saved, err := s.FormDetails.Upsert(ctx, m)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
