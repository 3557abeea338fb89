package plan

import (
	"time"

	"github.com/shopspring/decimal"
)

type MembershipPlan struct {
	ID             int64           `gorm:"primaryKey"`
	Name           string          `gorm:"column:name;uniqueIndex;not null"`
	Description    string          `gorm:"column:description"`
	Price          decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	AdmissionFee   decimal.Decimal `gorm:"column:admission_fee;type:decimal(12,2);not null"`
	DurationMonths int             `gorm:"column:duration_months;not null"`
	IsActive       bool            `gorm:"column:is_active;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (MembershipPlan) TableName() string {
	return "plans"
}
