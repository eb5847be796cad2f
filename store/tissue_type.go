package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
)

// TissueTypeStore persists the tissue type lookup table.
type TissueTypeStore struct{ DB *gorm.DB }

func NewTissueTypeStore(db *gorm.DB) *TissueTypeStore { return &TissueTypeStore{DB: db} }

func (s *TissueTypeStore) List(ctx context.Context) ([]models.TissueType, error) {
	var out []models.TissueType
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (s *TissueTypeStore) Get(ctx context.Context, id string) (*models.TissueType, error) {
	var m models.TissueType
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, translate(err, "tissue type")
	}
	return &m, nil
}

func (s *TissueTypeStore) Create(ctx context.Context, m *models.TissueType) error {
	if m.ID == "" {
		m.ID = models.NewID()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	return translate(s.DB.WithContext(ctx).Create(m).Error, "tissue type")
}

func (s *TissueTypeStore) Update(ctx context.Context, id, name, description string) (*models.TissueType, error) {
	res := s.DB.WithContext(ctx).Model(&models.TissueType{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "description": description, "updated_at": time.Now().UTC()})
	if err := affected(res, "tissue type"); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete refuses to remove a tissue type that samples still reference.
func (s *TissueTypeStore) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Sample{}).Where("tissue_type_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errors.ConflictError("tissue type is referenced by samples")
		}
		return affected(tx.Where("id = ?", id).Delete(&models.TissueType{}), "tissue type")
	})
}
