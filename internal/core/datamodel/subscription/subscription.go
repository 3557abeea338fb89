package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusOverdue = "overdue"
)

type Subscription struct {
	ID               int64           `gorm:"primaryKey"`
	MemberID         int64           `gorm:"column:member_id;not null;index:idx_subscriptions_member_status"`
	PlanID           int64           `gorm:"column:plan_id;not null"`
	StartDate        time.Time       `gorm:"column:start_date;not null"`
	EndDate          time.Time       `gorm:"column:end_date;not null;index"`
	AmountPaid       decimal.Decimal `gorm:"column:amount_paid;type:decimal(12,2);not null"`
	AdmissionFeePaid decimal.Decimal `gorm:"column:admission_fee_paid;type:decimal(12,2);not null"`
	PaymentStatus    string          `gorm:"column:payment_status;size:16;not null"`
	Status           string          `gorm:"column:status;size:16;not null;index:idx_subscriptions_member_status"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
