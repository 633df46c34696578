package contract

import (
	"context"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/repository/specification"
)

type CreditPurchaseRepository interface {
	// CreateIfAbsent inserts the purchase unless its TransactionId is already recorded.
	CreateIfAbsent(ctx context.Context, purchase *entity.CreditPurchase) (bool, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditPurchase, error)
}
