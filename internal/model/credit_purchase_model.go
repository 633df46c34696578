package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreditPurchase struct {
	Id            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        int             `gorm:"not null"`
	TransactionId string          `gorm:"type:varchar(100);uniqueIndex;not null"`
	PackageId     string          `gorm:"type:varchar(50)"`
	GrossAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	PaymentStatus string          `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (CreditPurchase) TableName() string {
	return "credit_purchases"
}
