package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BalanceResponse struct {
	Credits int `json:"credits"`
}

type CheckoutRequest struct {
	PackageId string `json:"package_id" validate:"required"`
}

type CheckoutResponse struct {
	OrderId         string `json:"order_id"`
	SnapToken       string `json:"snap_token"`
	SnapRedirectUrl string `json:"snap_redirect_url"`
}

type CreditPurchaseResponse struct {
	Id            uuid.UUID       `json:"id"`
	Amount        int             `json:"amount"`
	TransactionId string          `json:"transaction_id"`
	PackageId     string          `json:"package_id"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	PaymentStatus string          `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreditPackageResponse struct {
	Id       string          `json:"id"`
	Name     string          `json:"name"`
	Credits  int             `json:"credits"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}
