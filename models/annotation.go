package models

import (
	"encoding/json"
	"time"
)

// Annotation shape types drawn by the viewer
const (
	AnnotationRectangle = "rectangle"
	AnnotationEllipse   = "ellipse"
	AnnotationPolygon   = "polygon"
	AnnotationPoint     = "point"
	AnnotationText      = "text"
)

// ImageAnnotation is a shape drawn on a sample image. Only its creator may
// change or remove it.
// AnnotationData is stored as raw JSON bytes to avoid ORM map parsing issues.
type ImageAnnotation struct {
	ID             string          `gorm:"column:id;primaryKey" json:"id"`
	SampleID       string          `gorm:"column:sample_id;index" json:"sampleId"`
	CreatedBy      string          `gorm:"column:created_by;index" json:"createdBy"`
	AnnotationData json.RawMessage `gorm:"column:annotation_data" json:"annotationData,omitempty"`
	X              float64         `gorm:"column:x" json:"x"`
	Y              float64         `gorm:"column:y" json:"y"`
	Width          float64         `gorm:"column:width" json:"width"`
	Height         float64         `gorm:"column:height" json:"height"`
	Type           string          `gorm:"column:type" json:"type"`
	Text           string          `gorm:"column:text" json:"text,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (ImageAnnotation) TableName() string { return "image_annotations" }

// OwnerID returns the creator of the annotation.
func (a *ImageAnnotation) OwnerID() string { return a.CreatedBy }

// IsValidAnnotationType reports whether t is a known shape type.
func IsValidAnnotationType(t string) bool {
	switch t {
	case AnnotationRectangle, AnnotationEllipse, AnnotationPolygon, AnnotationPoint, AnnotationText:
		return true
	}
	return false
}
