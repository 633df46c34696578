package contract

import (
	"context"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)

	// DecrementCreditIfAvailable takes one credit in a single conditional statement.
	// It returns false, and changes nothing, when the balance is below one or the user is missing.
	DecrementCreditIfAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	// IncrementCredits returns false when no such user exists.
	IncrementCredits(ctx context.Context, id uuid.UUID, amount int) (bool, error)
}
