package entity

import (
	"time"

	"github.com/google/uuid"
)

type DesignStatus string

const (
	DesignStatusPending    DesignStatus = "pending"
	DesignStatusProcessing DesignStatus = "processing"
	DesignStatusCompleted  DesignStatus = "completed"
	DesignStatusFailed     DesignStatus = "failed"
)

func (s DesignStatus) IsTerminal() bool {
	return s == DesignStatusCompleted || s == DesignStatusFailed
}

type Design struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	ImageUrl         string
	Style            string
	Description      *string
	RoomType         string
	Status           DesignStatus
	PredictionId     *string
	ResultUrl        *string
	ErrorMessage     *string
	ProviderSnapshot []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// HasPrediction reports whether predictionId is the handle the design currently waits on.
func (d *Design) HasPrediction(predictionId string) bool {
	return d.PredictionId != nil && *d.PredictionId == predictionId
}
