package mapper

import (
	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/model"

	"gorm.io/datatypes"
)

type DesignMapper struct{}

func NewDesignMapper() *DesignMapper {
	return &DesignMapper{}
}

func (m *DesignMapper) ToEntity(d *model.Design) *entity.Design {
	if d == nil {
		return nil
	}
	return &entity.Design{
		Id:               d.Id,
		UserId:           d.UserId,
		ImageUrl:         d.ImageUrl,
		Style:            d.Style,
		Description:      d.Description,
		RoomType:         d.RoomType,
		Status:           entity.DesignStatus(d.Status),
		PredictionId:     d.PredictionId,
		ResultUrl:        d.ResultUrl,
		ErrorMessage:     d.ErrorMessage,
		ProviderSnapshot: []byte(d.ProviderSnapshot),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		CompletedAt:      d.CompletedAt,
	}
}

func (m *DesignMapper) ToModel(d *entity.Design) *model.Design {
	if d == nil {
		return nil
	}
	return &model.Design{
		Id:               d.Id,
		UserId:           d.UserId,
		ImageUrl:         d.ImageUrl,
		Style:            d.Style,
		Description:      d.Description,
		RoomType:         d.RoomType,
		Status:           string(d.Status),
		PredictionId:     d.PredictionId,
		ResultUrl:        d.ResultUrl,
		ErrorMessage:     d.ErrorMessage,
		ProviderSnapshot: datatypes.JSON(d.ProviderSnapshot),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		CompletedAt:      d.CompletedAt,
	}
}

func (m *DesignMapper) ToEntities(designs []*model.Design) []*entity.Design {
	entities := make([]*entity.Design, len(designs))
	for i, d := range designs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
