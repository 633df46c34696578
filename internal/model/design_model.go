package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Design struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID      `gorm:"type:uuid;not null;index"`
	ImageUrl         string         `gorm:"type:text;not null"`
	Style            string         `gorm:"type:varchar(50);not null"`
	Description      *string        `gorm:"type:text"`
	RoomType         string         `gorm:"type:varchar(50);not null"`
	Status           string         `gorm:"type:varchar(20);not null;default:'pending'"`
	PredictionId     *string        `gorm:"type:varchar(128);index"`
	ResultUrl        *string        `gorm:"type:text"`
	ErrorMessage     *string        `gorm:"type:text"`
	ProviderSnapshot datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	CompletedAt      *time.Time
}

func (Design) TableName() string {
	return "designs"
}
