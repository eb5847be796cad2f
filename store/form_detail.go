package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medhist/annotation-iam/models"
)

// FormDetailStore persists the per-sample pathology form.
type FormDetailStore struct{ DB *gorm.DB }

func NewFormDetailStore(db *gorm.DB) *FormDetailStore { return &FormDetailStore{DB: db} }

func (s *FormDetailStore) GetBySample(ctx context.Context, sampleID string) (*models.FormDetail, error) {
	var m models.FormDetail
	if err := s.DB.WithContext(ctx).Where("sample_id = ?", sampleID).Take(&m).Error; err != nil {
		return nil, translate(err, "form details")
	}
	return &m, nil
}

// Upsert creates the form for m.SampleID or overwrites the existing one in a
// single statement.
func (s *FormDetailStore) Upsert(ctx context.Context, m *models.FormDetail) (*models.FormDetail, error) {
	if m.ID == "" {
		m.ID = models.NewID()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sample_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"patient_name", "birth_date", "patient_id", "procedure_date", "sample_type",
			"anatomical_location", "dimensions", "texture", "cell_type", "ki67_index",
			"her2_status", "brca_type", "tnm_classification", "recommendations", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return nil, translate(err, "form details")
	}
	return s.GetBySample(ctx, m.SampleID)
}
