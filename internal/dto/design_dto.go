package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDesignRequest struct {
	RoomType    string  `form:"room_type" validate:"required,max=50"`
	Style       string  `form:"style" validate:"required,max=50"`
	Description *string `form:"description" validate:"omitempty,max=500"`
}

type UploadedImage struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

type CreateDesignResponse struct {
	Id           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	PredictionId *string   `json:"prediction_id,omitempty"`
	SubmitError  string    `json:"submit_error,omitempty"`
}

type GenerateDesignRequest struct {
	DesignId uuid.UUID `json:"design_id" validate:"required"`
}

type GenerateDesignResponse struct {
	DesignId     uuid.UUID `json:"design_id"`
	PredictionId string    `json:"prediction_id"`
	Status       string    `json:"status"`
}

type DesignResponse struct {
	Id           uuid.UUID  `json:"id"`
	ImageUrl     string     `json:"image_url"`
	Style        string     `json:"style"`
	RoomType     string     `json:"room_type"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status"`
	PredictionId *string    `json:"prediction_id,omitempty"`
	ResultUrl    *string    `json:"result_url,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type PredictionResponse struct {
	Id     string `json:"id"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type DesignStatusResponse struct {
	Design        *DesignResponse     `json:"design"`
	Prediction    *PredictionResponse `json:"prediction,omitempty"`
	ProviderError string              `json:"provider_error,omitempty"`
}

type DesignListResponse struct {
	Items  []*DesignResponse `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
