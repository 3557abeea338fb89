package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingOrder bridges the redirect to the provider and the settlement outcome.
// Its presence means the order is not yet settled.
type PendingOrder struct {
	ID        int64           `gorm:"primaryKey"`
	OrderID   string          `gorm:"column:order_id;uniqueIndex;size:64;not null"`
	MemberID  int64           `gorm:"column:member_id;not null;index"`
	PlanID    int64           `gorm:"column:plan_id;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;index"`
}

func (PendingOrder) TableName() string {
	return "pending_orders"
}
