package implementation

import (
	"context"
	"errors"
	"time"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/mapper"
	"ai-interior-design-be/internal/model"
	"ai-interior-design-be/internal/repository/contract"
	"ai-interior-design-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DesignRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DesignMapper
}

func NewDesignRepository(db *gorm.DB) contract.DesignRepository {
	return &DesignRepositoryImpl{
		db:     db,
		mapper: mapper.NewDesignMapper(),
	}
}

func (r *DesignRepositoryImpl) Create(ctx context.Context, design *entity.Design) error {
	m := r.mapper.ToModel(design)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*design = *r.mapper.ToEntity(m)
	return nil
}

func (r *DesignRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Design, error) {
	var m model.Design
	query := applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DesignRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Design, error) {
	var models []*model.Design
	query := applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DesignRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Design{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DesignRepositoryImpl) MarkProcessing(ctx context.Context, id uuid.UUID, predictionId string) (bool, error) {
	return r.transition(
		r.db.WithContext(ctx).Model(&model.Design{}).
			Where("id = ? AND status = ?", id, string(entity.DesignStatusPending)),
		map[string]interface{}{
			"status":        string(entity.DesignStatusProcessing),
			"prediction_id": predictionId,
			"error_message": nil,
		})
}

func (r *DesignRepositoryImpl) MarkCompleted(ctx context.Context, id uuid.UUID, predictionId, resultUrl string, snapshot []byte) (bool, error) {
	return r.transition(
		r.currentAttempt(ctx, id, predictionId),
		map[string]interface{}{
			"status":            string(entity.DesignStatusCompleted),
			"result_url":        resultUrl,
			"error_message":     nil,
			"provider_snapshot": snapshotValue(snapshot),
			"completed_at":      time.Now(),
		})
}

func (r *DesignRepositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID, predictionId, errorMessage string, snapshot []byte) (bool, error) {
	return r.transition(
		r.currentAttempt(ctx, id, predictionId),
		map[string]interface{}{
			"status":            string(entity.DesignStatusFailed),
			"result_url":        nil,
			"error_message":     errorMessage,
			"provider_snapshot": snapshotValue(snapshot),
			"completed_at":      time.Now(),
		})
}

func (r *DesignRepositoryImpl) ResetForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(
		r.db.WithContext(ctx).Model(&model.Design{}).
			Where("id = ? AND status = ?", id, string(entity.DesignStatusFailed)),
		map[string]interface{}{
			"status":        string(entity.DesignStatusPending),
			"prediction_id": nil,
			"result_url":    nil,
			"error_message": nil,
			"completed_at":  nil,
		})
}

// currentAttempt matches only a processing design still waiting on predictionId.
// Stale or duplicate provider events therefore update zero rows.
func (r *DesignRepositoryImpl) currentAttempt(ctx context.Context, id uuid.UUID, predictionId string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Design{}).
		Where("id = ? AND prediction_id = ? AND status = ?", id, predictionId, string(entity.DesignStatusProcessing))
}

func (r *DesignRepositoryImpl) transition(query *gorm.DB, values map[string]interface{}) (bool, error) {
	res := query.Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func snapshotValue(snapshot []byte) interface{} {
	if len(snapshot) == 0 {
		return nil
	}
	return datatypes.JSON(snapshot)
}
