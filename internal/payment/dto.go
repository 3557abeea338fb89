package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/common/validation"
	"github.com/frahmantamala/gym-membership/internal/settlement"
)

// Local order states reported next to the provider's view.
const (
	LocalStatePending  = "pending"
	LocalStateSettled  = "settled"
	LocalStateRefunded = "refunded"
	LocalStateUnknown  = "unknown"
)

type StatusResponse struct {
	OrderID       string `json:"order_id"`
	ProviderState string `json:"provider_state"`
	ProviderCode  string `json:"provider_code"`
	LocalState    string `json:"local_state"`
	Payment       *View  `json:"payment,omitempty"`
}

type ResolveResponse struct {
	OrderID string            `json:"order_id"`
	Status  settlement.Status `json:"status"`
	Payment *View             `json:"payment,omitempty"`
}

func toResolveResponse(res *settlement.Result) ResolveResponse {
	return ResolveResponse{
		OrderID: res.OrderID,
		Status:  res.Status,
		Payment: ToView(res.Payment),
	}
}

// RefundRequest refunds the full payment when Amount is omitted.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

func (r *RefundRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("amount", r.Amount).PositiveDecimal(internal.ErrCodeInvalidAmount)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type RefundResponse struct {
	OrderID    string     `json:"order_id"`
	RefundID   string     `json:"refund_id"`
	Status     string     `json:"status"`
	Amount     string     `json:"amount"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}
