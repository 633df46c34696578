package specification

import (
	"ai-interior-design-be/internal/entity"

	"gorm.io/gorm"
)

// ByPredictionID is the reverse index used by provider webhooks.
type ByPredictionID struct {
	PredictionID string
}

func (s ByPredictionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("prediction_id = ?", s.PredictionID)
}

type ByDesignStatus struct {
	Status entity.DesignStatus
}

func (s ByDesignStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}
