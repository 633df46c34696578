package service

import (
	"context"
	"errors"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/repository/unitofwork"
	"ai-interior-design-be/pkg/events"
	"ai-interior-design-be/pkg/ledger"
	"ai-interior-design-be/pkg/payment"
)

type IPaymentService interface {
	// HandleNotification records a paid Midtrans transaction. It returns
	// payment.ErrSignatureVerification for unsigned payloads and ErrValidation for signed
	// payloads that can never be applied; any other error is worth a redelivery.
	HandleNotification(ctx context.Context, n *payment.Notification) error
}

type paymentService struct {
	uowFactory unitofwork.RepositoryFactory
	ledger     *ledger.Ledger
	publisher  events.Publisher
	serverKey  string
	logger     logger.ILogger
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	ledger *ledger.Ledger,
	publisher events.Publisher,
	serverKey string,
	logger logger.ILogger,
) IPaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &paymentService{
		uowFactory: uowFactory,
		ledger:     ledger,
		publisher:  publisher,
		serverKey:  serverKey,
		logger:     logger,
	}
}

func (s *paymentService) HandleNotification(ctx context.Context, n *payment.Notification) error {
	if s.serverKey == "" || !n.VerifySignature(s.serverKey) {
		s.logger.Warn("PAYMENT", "Rejected notification with invalid signature", map[string]interface{}{
			"order_id": n.OrderId,
		})
		return payment.ErrSignatureVerification
	}

	if !n.IsPaid() {
		s.logger.Info("PAYMENT", "Ignoring non-settled notification", map[string]interface{}{
			"order_id":           n.OrderId,
			"transaction_status": n.TransactionStatus,
			"fraud_status":       n.FraudStatus,
		})
		return nil
	}

	userId, err := n.UserId()
	if err != nil {
		s.logger.Error("PAYMENT", "Paid notification without a usable user", map[string]interface{}{
			"order_id": n.OrderId,
			"error":    err.Error(),
		})
		return apperror.Wrap(apperror.ErrValidation, "%s", err.Error())
	}
	credits, err := n.Credits()
	if err != nil {
		s.logger.Error("PAYMENT", "Paid notification without a usable credit amount", map[string]interface{}{
			"order_id": n.OrderId,
			"error":    err.Error(),
		})
		return apperror.Wrap(apperror.ErrValidation, "%s", err.Error())
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	recorded, err := s.ledger.RecordPurchase(ctx, uow, ledger.Purchase{
		UserId:        userId,
		Credits:       credits,
		TransactionId: n.TransactionId,
		PackageId:     n.CustomField3,
		GrossAmount:   n.Gross(),
	})
	if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrValidation) {
		s.logger.Error("PAYMENT", "Paid notification cannot be applied", map[string]interface{}{
			"order_id":       n.OrderId,
			"transaction_id": n.TransactionId,
			"error":          err.Error(),
		})
		return apperror.Wrap(apperror.ErrValidation, "%s", err.Error())
	}
	if err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if !recorded {
		s.logger.Info("PAYMENT", "Duplicate notification, purchase already recorded", map[string]interface{}{
			"transaction_id": n.TransactionId,
		})
		return nil
	}

	event := events.New(events.CreditsPurchased, map[string]interface{}{
		"user_id":        userId.String(),
		"credits":        credits,
		"transaction_id": n.TransactionId,
		"order_id":       n.OrderId,
		"package_id":     n.CustomField3,
		"gross_amount":   n.Gross().StringFixed(2),
		"payment_status": string(entity.PaymentStatusPaid),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("PAYMENT", "Failed to publish purchase event", map[string]interface{}{
			"transaction_id": n.TransactionId,
			"error":          err.Error(),
		})
	}
	return nil
}
