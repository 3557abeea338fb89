package settlement

import (
	"context"
	"errors"

	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
)

// ErrClaimLost means another caller already consumed the pending order.
var ErrClaimLost = errors.New("pending order already claimed")

// Store is the persistence the reconciler needs. Lookups return nil, nil when
// the row does not exist.
type Store interface {
	FindPaymentByTransactionID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error)
	FindSubscription(ctx context.Context, id int64) (*subscriptionDatamodel.Subscription, error)
	FindPendingOrder(ctx context.Context, orderID string) (*orderDatamodel.PendingOrder, error)
	// FindPlan reads a plan regardless of its active flag; a member who already
	// paid gets the plan they bought.
	FindPlan(ctx context.Context, id int64) (*planDatamodel.MembershipPlan, error)
	WithinTransaction(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the part of the store usable inside one transaction.
type TxStore interface {
	// ClaimPendingOrder deletes the order row and returns it. It returns
	// ErrClaimLost when the delete affected no row.
	ClaimPendingOrder(ctx context.Context, orderID string) (*orderDatamodel.PendingOrder, error)
	CreateSubscription(ctx context.Context, s *subscriptionDatamodel.Subscription) error
	CreatePayment(ctx context.Context, p *paymentDatamodel.Payment) error
}
