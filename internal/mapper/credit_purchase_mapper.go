package mapper

import (
	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/model"
)

type CreditPurchaseMapper struct{}

func NewCreditPurchaseMapper() *CreditPurchaseMapper {
	return &CreditPurchaseMapper{}
}

func (m *CreditPurchaseMapper) ToEntity(p *model.CreditPurchase) *entity.CreditPurchase {
	if p == nil {
		return nil
	}
	return &entity.CreditPurchase{
		Id:            p.Id,
		UserId:        p.UserId,
		Amount:        p.Amount,
		TransactionId: p.TransactionId,
		PackageId:     p.PackageId,
		GrossAmount:   p.GrossAmount,
		PaymentStatus: entity.PaymentStatus(p.PaymentStatus),
		CreatedAt:     p.CreatedAt,
	}
}

func (m *CreditPurchaseMapper) ToModel(p *entity.CreditPurchase) *model.CreditPurchase {
	if p == nil {
		return nil
	}
	return &model.CreditPurchase{
		Id:            p.Id,
		UserId:        p.UserId,
		Amount:        p.Amount,
		TransactionId: p.TransactionId,
		PackageId:     p.PackageId,
		GrossAmount:   p.GrossAmount,
		PaymentStatus: string(p.PaymentStatus),
		CreatedAt:     p.CreatedAt,
	}
}

func (m *CreditPurchaseMapper) ToEntities(purchases []*model.CreditPurchase) []*entity.CreditPurchase {
	entities := make([]*entity.CreditPurchase, len(purchases))
	for i, p := range purchases {
		entities[i] = m.ToEntity(p)
	}
	return entities
}
