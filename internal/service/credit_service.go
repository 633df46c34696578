package service

import (
	"context"
	"fmt"

	"ai-interior-design-be/internal/dto"
	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/repository/specification"
	"ai-interior-design-be/internal/repository/unitofwork"
	"ai-interior-design-be/pkg/ledger"
	"ai-interior-design-be/pkg/payment"

	"github.com/google/uuid"
)

type ICreditService interface {
	GetBalance(ctx context.Context, userId uuid.UUID) (*dto.BalanceResponse, error)
	GetPackages(ctx context.Context) []*dto.CreditPackageResponse
	ListPurchases(ctx context.Context, userId uuid.UUID) ([]*dto.CreditPurchaseResponse, error)
	Checkout(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type creditService struct {
	uowFactory unitofwork.RepositoryFactory
	ledger     *ledger.Ledger
	gateway    payment.Gateway
	logger     logger.ILogger
}

func NewCreditService(uowFactory unitofwork.RepositoryFactory, ledger *ledger.Ledger, gateway payment.Gateway, logger logger.ILogger) ICreditService {
	return &creditService{
		uowFactory: uowFactory,
		ledger:     ledger,
		gateway:    gateway,
		logger:     logger,
	}
}

func (s *creditService) GetBalance(ctx context.Context, userId uuid.UUID) (*dto.BalanceResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	credits, err := s.ledger.Balance(ctx, uow, userId)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceResponse{Credits: credits}, nil
}

func (s *creditService) GetPackages(ctx context.Context) []*dto.CreditPackageResponse {
	packages := payment.Packages()
	res := make([]*dto.CreditPackageResponse, 0, len(packages))
	for _, p := range packages {
		res = append(res, &dto.CreditPackageResponse{
			Id:       p.ID,
			Name:     p.Name,
			Credits:  p.Credits,
			Price:    p.Price,
			Currency: payment.Currency,
		})
	}
	return res
}

func (s *creditService) ListPurchases(ctx context.Context, userId uuid.UUID) ([]*dto.CreditPurchaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	purchases, err := s.ledger.History(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.CreditPurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		res = append(res, toCreditPurchaseResponse(p))
	}
	return res, nil
}

// Checkout opens a Snap session. Credits are granted later by the payment notification.
func (s *creditService) Checkout(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	pkg, ok := payment.FindPackage(req.PackageId)
	if !ok {
		return nil, apperror.Wrap(apperror.ErrValidation, "unknown package %q", req.PackageId)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
	}

	checkout, err := s.gateway.CreateCheckout(ctx, payment.Customer{
		Id:       user.Id,
		FullName: user.FullName,
		Email:    user.Email,
	}, pkg)
	if err != nil {
		s.logger.Error("CREDIT", "Checkout creation failed", map[string]interface{}{
			"user_id":    userId.String(),
			"package_id": pkg.ID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}

	s.logger.Info("CREDIT", "Checkout created", map[string]interface{}{
		"user_id":    userId.String(),
		"package_id": pkg.ID,
		"order_id":   checkout.OrderId,
	})
	return &dto.CheckoutResponse{
		OrderId:         checkout.OrderId,
		SnapToken:       checkout.Token,
		SnapRedirectUrl: checkout.RedirectURL,
	}, nil
}

func toCreditPurchaseResponse(p *entity.CreditPurchase) *dto.CreditPurchaseResponse {
	return &dto.CreditPurchaseResponse{
		Id:            p.Id,
		Amount:        p.Amount,
		TransactionId: p.TransactionId,
		PackageId:     p.PackageId,
		GrossAmount:   p.GrossAmount,
		PaymentStatus: string(p.PaymentStatus),
		CreatedAt:     p.CreatedAt,
	}
}
