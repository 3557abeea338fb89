package payment

import (
	"time"

	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/settlement"
)

const refundIDPrefix = "RF"

// RefundID derives the provider refund reference from the order it refunds,
// so a repeated refund of one payment always carries the same id.
func RefundID(orderID string) string {
	return refundIDPrefix + orderID
}

// OutcomeFor maps a provider state onto a settlement outcome. Non-terminal
// states report false and must not be reconciled.
func OutcomeFor(state pgtypes.State) (settlement.Outcome, bool) {
	switch state {
	case pgtypes.StateCompleted:
		return settlement.OutcomeSuccess, true
	case pgtypes.StateFailed:
		return settlement.OutcomeFailure, true
	default:
		return "", false
	}
}

type View struct {
	ID             int64      `json:"id"`
	SubscriptionID int64      `json:"subscription_id"`
	MemberID       int64      `json:"member_id"`
	OrderID        string     `json:"order_id,omitempty"`
	InvoiceNumber  string     `json:"invoice_number"`
	Amount         string     `json:"amount"`
	PaymentMethod  string     `json:"payment_method"`
	PaymentSource  string     `json:"payment_source"`
	PaymentType    string     `json:"payment_type"`
	Status         string     `json:"status"`
	PaymentDate    time.Time  `json:"payment_date"`
	RefundID       string     `json:"refund_id,omitempty"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
	RefundedAmount string     `json:"refunded_amount,omitempty"`
}

func ToView(p *paymentDatamodel.Payment) *View {
	if p == nil {
		return nil
	}
	v := &View{
		ID:             p.ID,
		SubscriptionID: p.SubscriptionID,
		MemberID:       p.MemberID,
		InvoiceNumber:  p.InvoiceNumber,
		Amount:         p.Amount.StringFixed(2),
		PaymentMethod:  p.PaymentMethod,
		PaymentSource:  p.PaymentSource,
		PaymentType:    p.PaymentType,
		Status:         p.Status,
		PaymentDate:    p.PaymentDate,
		RefundedAt:     p.RefundedAt,
	}
	if p.TransactionID != nil {
		v.OrderID = *p.TransactionID
	}
	if p.RefundID != nil {
		v.RefundID = *p.RefundID
	}
	if p.RefundedAmount.Valid {
		v.RefundedAmount = p.RefundedAmount.Decimal.StringFixed(2)
	}
	return v
}
