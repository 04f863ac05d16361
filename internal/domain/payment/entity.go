// internal/domain/payment/entity.go
package payment

import "time"

// TransactionStatus represents the gateway-side state of a transaction
type TransactionStatus string

const (
	TransactionStatusCreated  TransactionStatus = "created"
	TransactionStatusCaptured TransactionStatus = "captured"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

// Transaction records one gateway payment attempt for an order. The gateway
// identifiers here are what a refund needs later.
type Transaction struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	OrderID           uint              `gorm:"not null;index" json:"order_id"`
	GatewayOrderID    string            `gorm:"not null;size:100;index" json:"gateway_order_id"`
	GatewayPaymentID  string            `gorm:"size:100;index" json:"gateway_payment_id"`
	GatewayRefundID   string            `gorm:"size:100" json:"gateway_refund_id,omitempty"`
	Amount            int64             `gorm:"not null" json:"amount"` // In cents
	Currency          string            `gorm:"size:3;not null" json:"currency"`
	Status            TransactionStatus `gorm:"not null;default:'created'" json:"status"`
	FailureReason     string            `gorm:"size:255" json:"failure_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TableName overrides the table name for Transaction
func (Transaction) TableName() string {
	return "payment_transactions"
}
