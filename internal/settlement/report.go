package settlement

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
)

// Report holds the read-only queries operators use to compare local state with
// the provider dashboard.
type Report struct {
	db *sqlx.DB
}

func NewReport(db *sqlx.DB) *Report {
	return &Report{db: db}
}

type OutstandingOrder struct {
	OrderID   string          `db:"order_id" json:"order_id"`
	MemberID  int64           `db:"member_id" json:"member_id"`
	PlanID    int64           `db:"plan_id" json:"plan_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type GatewayPayment struct {
	TransactionID  string              `db:"transaction_id" json:"transaction_id"`
	InvoiceNumber  string              `db:"invoice_number" json:"invoice_number"`
	MemberID       int64               `db:"member_id" json:"member_id"`
	Amount         decimal.Decimal     `db:"amount" json:"amount"`
	Status         string              `db:"status" json:"status"`
	// RefundedAmount is set once refunded; below Amount for a partial refund.
	RefundedAmount decimal.NullDecimal `db:"refunded_amount" json:"refunded_amount"`
	PaymentDate    time.Time           `db:"payment_date" json:"payment_date"`
}

// OutstandingOrders lists pending orders created before olderThan, oldest first.
func (r *Report) OutstandingOrders(ctx context.Context, olderThan time.Time) ([]OutstandingOrder, error) {
	query := r.db.Rebind(`SELECT order_id, member_id, plan_id, amount, created_at
		FROM pending_orders
		WHERE created_at < ?
		ORDER BY created_at ASC, id ASC`)

	var rows []OutstandingOrder
	if err := r.db.SelectContext(ctx, &rows, query, olderThan.UTC()); err != nil {
		return nil, err
	}
	return rows, nil
}

// GatewayPayments lists gateway-sourced payments dated at or after since.
func (r *Report) GatewayPayments(ctx context.Context, since time.Time) ([]GatewayPayment, error) {
	query := r.db.Rebind(`SELECT transaction_id, invoice_number, member_id, amount, status, refunded_amount, payment_date
		FROM payments
		WHERE payment_source = ? AND payment_date >= ?
		ORDER BY payment_date ASC, id ASC`)

	var rows []GatewayPayment
	if err := r.db.SelectContext(ctx, &rows, query, paymentDatamodel.SourceGateway, since.UTC()); err != nil {
		return nil, err
	}
	return rows, nil
}
