// Package ledger owns every change to a user's credit balance.
//
// All methods run against the caller's unit of work so that a reservation can
// commit or roll back together with the design row it pays for.
package ledger

import (
	"context"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/repository/specification"
	"ai-interior-design-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase describes a paid credit package as reported by the payment provider.
type Purchase struct {
	UserId        uuid.UUID
	Credits       int
	TransactionId string
	PackageId     string
	GrossAmount   decimal.Decimal
}

type Ledger struct {
	logger logger.ILogger
}

func New(logger logger.ILogger) *Ledger {
	return &Ledger{logger: logger}
}

// Balance returns the user's current credit count.
func (l *Ledger) Balance(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (int, error) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, apperror.Wrap(apperror.ErrNotFound, "user %s not found", userId)
	}
	return user.Credits, nil
}

// TryReserveOne takes one credit if the balance allows it. A false result means the
// balance was below one and nothing changed.
func (l *Ledger) TryReserveOne(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (bool, error) {
	ok, err := uow.UserRepository().DecrementCreditIfAvailable(ctx, userId)
	if err != nil {
		return false, err
	}
	if !ok {
		l.logger.Info("LEDGER", "Credit reservation refused", map[string]interface{}{
			"user_id": userId.String(),
		})
	}
	return ok, nil
}

// Grant adds amount credits to the user.
func (l *Ledger) Grant(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, amount int) error {
	if amount <= 0 {
		return apperror.Wrap(apperror.ErrValidation, "grant amount must be positive, got %d", amount)
	}
	ok, err := uow.UserRepository().IncrementCredits(ctx, userId, amount)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Wrap(apperror.ErrNotFound, "user %s not found", userId)
	}
	return nil
}

// RecordPurchase stores the purchase and grants its credits exactly once per
// transaction id. Replays return false and change nothing.
func (l *Ledger) RecordPurchase(ctx context.Context, uow unitofwork.UnitOfWork, p Purchase) (bool, error) {
	if p.TransactionId == "" {
		return false, apperror.Wrap(apperror.ErrValidation, "transaction id is required")
	}
	if p.Credits <= 0 {
		return false, apperror.Wrap(apperror.ErrValidation, "purchase must carry a positive credit amount")
	}

	purchase := &entity.CreditPurchase{
		UserId:        p.UserId,
		Amount:        p.Credits,
		TransactionId: p.TransactionId,
		PackageId:     p.PackageId,
		GrossAmount:   p.GrossAmount,
		PaymentStatus: entity.PaymentStatusPaid,
	}
	inserted, err := uow.CreditPurchaseRepository().CreateIfAbsent(ctx, purchase)
	if err != nil {
		return false, err
	}
	if !inserted {
		l.logger.Info("LEDGER", "Purchase already recorded", map[string]interface{}{
			"transaction_id": p.TransactionId,
		})
		return false, nil
	}

	if err := l.Grant(ctx, uow, p.UserId, p.Credits); err != nil {
		return false, err
	}

	l.logger.Info("LEDGER", "Purchase recorded", map[string]interface{}{
		"transaction_id": p.TransactionId,
		"user_id":        p.UserId.String(),
		"credits":        p.Credits,
	})
	return true, nil
}

// History lists the user's purchases, newest first.
func (l *Ledger) History(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) ([]*entity.CreditPurchase, error) {
	return uow.CreditPurchaseRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}
