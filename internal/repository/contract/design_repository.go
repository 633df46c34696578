package contract

import (
	"context"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/repository/specification"

	"github.com/google/uuid"
)

// DesignRepository state changes are conditional updates. Each returns true only when
// the row was still in the expected state, so concurrent callers never both win.
type DesignRepository interface {
	Create(ctx context.Context, design *entity.Design) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Design, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Design, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// pending -> processing
	MarkProcessing(ctx context.Context, id uuid.UUID, predictionId string) (bool, error)
	// processing -> completed, only while predictionId is still the current handle
	MarkCompleted(ctx context.Context, id uuid.UUID, predictionId, resultUrl string, snapshot []byte) (bool, error)
	// processing -> failed, only while predictionId is still the current handle
	MarkFailed(ctx context.Context, id uuid.UUID, predictionId, errorMessage string, snapshot []byte) (bool, error)
	// failed -> pending, clearing the previous attempt
	ResetForRetry(ctx context.Context, id uuid.UUID) (bool, error)
}
