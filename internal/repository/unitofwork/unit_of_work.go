package unitofwork

import (
	"context"

	"ai-interior-design-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	DesignRepository() contract.DesignRepository
	CreditPurchaseRepository() contract.CreditPurchaseRepository
}
