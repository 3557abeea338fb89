package plan

import (
	"github.com/shopspring/decimal"

	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
)

type Plan struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	AdmissionFee   decimal.Decimal `json:"admission_fee"`
	DurationMonths int             `json:"duration_months"`
	IsActive       bool            `json:"is_active"`
}

// PayableAmount is the plan price plus the admission fee unless it is waived.
func (p *Plan) PayableAmount(waiveAdmission bool) decimal.Decimal {
	if waiveAdmission {
		return p.Price
	}
	return p.Price.Add(p.AdmissionFee)
}

func (p *Plan) ToResponse(waiveAdmission bool) PlanResponse {
	return PlanResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price.StringFixed(2),
		AdmissionFee:    p.AdmissionFee.StringFixed(2),
		AdmissionWaived: waiveAdmission,
		DurationMonths:  p.DurationMonths,
		Payable:         p.PayableAmount(waiveAdmission).StringFixed(2),
	}
}

func FromDataModel(m *planDatamodel.MembershipPlan) *Plan {
	return &Plan{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		Price:          m.Price,
		AdmissionFee:   m.AdmissionFee,
		DurationMonths: m.DurationMonths,
		IsActive:       m.IsActive,
	}
}

func ToDataModel(p *Plan) *planDatamodel.MembershipPlan {
	return &planDatamodel.MembershipPlan{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		AdmissionFee:   p.AdmissionFee,
		DurationMonths: p.DurationMonths,
		IsActive:       p.IsActive,
	}
}
