package order

import (
	errors "github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/common/validation"
)

type CheckoutRequest struct {
	PlanID int64 `json:"plan_id"`
}

func (r CheckoutRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("plan_id", r.PlanID).Required().MinInt(1, errors.ErrCodeInvalidPlan)
	return v.Validate()
}

type CheckoutResponse struct {
	OrderID         string `json:"order_id"`
	RedirectURL     string `json:"redirect_url"`
	Amount          string `json:"amount"`
	AdmissionWaived bool   `json:"admission_waived"`
}
