package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPaid PaymentStatus = "paid"
)

// CreditPurchase is an append-only ledger entry. TransactionId is unique.
type CreditPurchase struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	Amount        int
	TransactionId string
	PackageId     string
	GrossAmount   decimal.Decimal
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}
