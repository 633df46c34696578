package implementation

import (
	"context"
	"time"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/mapper"
	"ai-interior-design-be/internal/model"
	"ai-interior-design-be/internal/repository/contract"
	"ai-interior-design-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditPurchaseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreditPurchaseMapper
}

func NewCreditPurchaseRepository(db *gorm.DB) contract.CreditPurchaseRepository {
	return &CreditPurchaseRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreditPurchaseMapper(),
	}
}

func (r *CreditPurchaseRepositoryImpl) CreateIfAbsent(ctx context.Context, purchase *entity.CreditPurchase) (bool, error) {
	if purchase.Id == uuid.Nil {
		purchase.Id = uuid.New()
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}
	m := r.mapper.ToModel(purchase)

	// The unique index on transaction_id makes replayed payment notifications a no-op.
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO credit_purchases (id, user_id, amount, transaction_id, package_id, gross_amount, payment_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO NOTHING
	`, m.Id, m.UserId, m.Amount, m.TransactionId, m.PackageId, m.GrossAmount, m.PaymentStatus, m.CreatedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *CreditPurchaseRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditPurchase, error) {
	var models []*model.CreditPurchase
	query := applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
