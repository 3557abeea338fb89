package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MethodCash         = "cash"
	MethodCard         = "card"
	MethodUPI          = "upi"
	MethodBankTransfer = "bank_transfer"
	MethodGateway      = "gateway"

	SourceManual  = "manual"
	SourceGateway = "gateway"

	TypePlan      = "plan"
	TypeAdmission = "admission"
	TypeRenewal   = "renewal"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

type Payment struct {
	ID             int64               `gorm:"primaryKey"`
	SubscriptionID int64               `gorm:"column:subscription_id;not null;index"`
	MemberID       int64               `gorm:"column:member_id;not null;index"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:decimal(12,2);not null"`
	PaymentMethod  string              `gorm:"column:payment_method;size:16;not null"`
	PaymentSource  string              `gorm:"column:payment_source;size:16;not null"`
	PaymentType    string              `gorm:"column:payment_type;size:16;not null"`
	PaymentDate    time.Time           `gorm:"column:payment_date;not null"`
	Status         string              `gorm:"column:status;size:16;not null"`
	TransactionID  *string             `gorm:"column:transaction_id;uniqueIndex;size:64"`
	InvoiceNumber  string              `gorm:"column:invoice_number;uniqueIndex;size:32;not null"`
	RefundID       *string             `gorm:"column:refund_id;uniqueIndex;size:64"`
	RefundedAt     *time.Time          `gorm:"column:refunded_at"`
	// RefundedAmount is set on refund and may be less than Amount.
	RefundedAmount decimal.NullDecimal `gorm:"column:refunded_amount;type:decimal(12,2)"`
	// RefundResponse holds the provider's refund reply as JSON text.
	RefundResponse *string             `gorm:"column:refund_response;type:text"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
