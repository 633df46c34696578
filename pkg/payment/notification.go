package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrSignatureVerification = errors.New("payment notification signature mismatch")

// Notification is the HTTP notification Midtrans posts after a transaction changes state.
type Notification struct {
	TransactionStatus string `json:"transaction_status"`
	TransactionId     string `json:"transaction_id"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	CustomField1      string `json:"custom_field1"`
	CustomField2      string `json:"custom_field2"`
	CustomField3      string `json:"custom_field3"`
}

// Signature computes SHA512(order_id + status_code + gross_amount + server_key) as lowercase hex.
func Signature(orderId, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderId + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares in constant time. An empty server key never verifies.
func (n *Notification) VerifySignature(serverKey string) bool {
	if serverKey == "" || n.SignatureKey == "" {
		return false
	}
	expected := Signature(n.OrderId, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) == 1
}

// IsPaid reports whether the money has actually moved. A card capture only counts
// once fraud screening accepted it.
func (n *Notification) IsPaid() bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "" || n.FraudStatus == "accept"
	default:
		return false
	}
}

// UserId reads the purchasing user from custom_field1.
func (n *Notification) UserId() (uuid.UUID, error) {
	id, err := uuid.Parse(n.CustomField1)
	if err != nil {
		return uuid.Nil, fmt.Errorf("custom_field1 is not a user id: %w", err)
	}
	return id, nil
}

// Credits reads the purchased credit amount from custom_field2.
func (n *Notification) Credits() (int, error) {
	credits, err := strconv.Atoi(strings.TrimSpace(n.CustomField2))
	if err != nil {
		return 0, fmt.Errorf("custom_field2 is not a credit amount: %w", err)
	}
	if credits <= 0 {
		return 0, fmt.Errorf("custom_field2 must be positive, got %d", credits)
	}
	return credits, nil
}

// Gross parses gross_amount; Midtrans sends it as "129000.00".
func (n *Notification) Gross() decimal.Decimal {
	d, err := decimal.NewFromString(n.GrossAmount)
	if err != nil {
		return decimal.Zero
	}
	return d
}
