package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/medhist/annotation-iam/models"
)

// SampleStore persists samples.
type SampleStore struct{ DB *gorm.DB }

func NewSampleStore(db *gorm.DB) *SampleStore { return &SampleStore{DB: db} }

// SampleUpdate optional fields of a sample edit
type SampleUpdate struct {
	Code         *string
	Description  *string
	IsScanned    *bool
	TissueTypeID *string
	DziPath      *string
}

func (s *SampleStore) List(ctx context.Context) ([]models.Sample, error) {
	var out []models.Sample
	err := s.DB.WithContext(ctx).Preload("TissueType").Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *SampleStore) Get(ctx context.Context, id string) (*models.Sample, error) {
	var m models.Sample
	if err := s.DB.WithContext(ctx).Preload("TissueType").Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, translate(err, "sample")
	}
	return &m, nil
}

func (s *SampleStore) Create(ctx context.Context, m *models.Sample) error {
	if m.ID == "" {
		m.ID = models.NewID()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	return translate(s.DB.WithContext(ctx).Omit("TissueType").Create(m).Error, "sample")
}

func (s *SampleStore) Update(ctx context.Context, id string, upd SampleUpdate) (*models.Sample, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if upd.Code != nil {
		updates["code"] = *upd.Code
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.IsScanned != nil {
		updates["is_scanned"] = *upd.IsScanned
	}
	if upd.TissueTypeID != nil {
		if *upd.TissueTypeID == "" {
			updates["tissue_type_id"] = nil
		} else {
			updates["tissue_type_id"] = *upd.TissueTypeID
		}
	}
	if upd.DziPath != nil {
		updates["dzi_path"] = *upd.DziPath
	}
	if err := affected(s.DB.WithContext(ctx).Model(&models.Sample{}).Where("id = ?", id).Updates(updates), "sample"); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the sample together with its form and annotations.
func (s *SampleStore) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sample_id = ?", id).Delete(&models.ImageAnnotation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sample_id = ?", id).Delete(&models.FormDetail{}).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&models.Sample{}), "sample")
	})
}
