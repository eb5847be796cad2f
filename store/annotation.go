package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/medhist/annotation-iam/models"
)

// AnnotationStore persists image annotations.
type AnnotationStore struct{ DB *gorm.DB }

func NewAnnotationStore(db *gorm.DB) *AnnotationStore { return &AnnotationStore{DB: db} }

// AnnotationUpdate optional fields of an annotation edit
type AnnotationUpdate struct {
	AnnotationData json.RawMessage
	X, Y           *float64
	Width, Height  *float64
	Type           *string
	Text           *string
}

func (s *AnnotationStore) ListBySample(ctx context.Context, sampleID string) ([]models.ImageAnnotation, error) {
	var out []models.ImageAnnotation
	err := s.DB.WithContext(ctx).Where("sample_id = ?", sampleID).Order("created_at ASC").Find(&out).Error
	return out, err
}

// Get loads an annotation that belongs to sampleID.
func (s *AnnotationStore) Get(ctx context.Context, sampleID, id string) (*models.ImageAnnotation, error) {
	var m models.ImageAnnotation
	err := s.DB.WithContext(ctx).Where("id = ? AND sample_id = ?", id, sampleID).Take(&m).Error
	if err != nil {
		return nil, translate(err, "annotation")
	}
	return &m, nil
}

func (s *AnnotationStore) Create(ctx context.Context, m *models.ImageAnnotation) error {
	if m.ID == "" {
		m.ID = models.NewID()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	return translate(s.DB.WithContext(ctx).Create(m).Error, "annotation")
}

// UpdateOwned edits the annotation only while ownerID still owns it.
func (s *AnnotationStore) UpdateOwned(ctx context.Context, id, ownerID string, upd AnnotationUpdate) (*models.ImageAnnotation, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if upd.AnnotationData != nil {
		updates["annotation_data"] = upd.AnnotationData
	}
	if upd.X != nil {
		updates["x"] = *upd.X
	}
	if upd.Y != nil {
		updates["y"] = *upd.Y
	}
	if upd.Width != nil {
		updates["width"] = *upd.Width
	}
	if upd.Height != nil {
		updates["height"] = *upd.Height
	}
	if upd.Type != nil {
		updates["type"] = *upd.Type
	}
	if upd.Text != nil {
		updates["text"] = *upd.Text
	}
	res := s.DB.WithContext(ctx).Model(&models.ImageAnnotation{}).
		Where("id = ? AND created_by = ?", id, ownerID).Updates(updates)
	if err := affected(res, "annotation"); err != nil {
		return nil, err
	}
	var m models.ImageAnnotation
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, translate(err, "annotation")
	}
	return &m, nil
}

// DeleteOwned removes the annotation in one statement guarded by created_by.
func (s *AnnotationStore) DeleteOwned(ctx context.Context, id, ownerID string) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND created_by = ?", id, ownerID).Delete(&models.ImageAnnotation{})
	return affected(res, "annotation")
}
