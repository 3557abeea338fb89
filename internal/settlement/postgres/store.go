package postgres

import (
	"context"
	"errors"

	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
	"github.com/frahmantamala/gym-membership/internal/settlement"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) settlement.Store {
	return &Store{db: db}
}

func first[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *Store) FindPaymentByTransactionID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error) {
	return first[paymentDatamodel.Payment](s.db.WithContext(ctx).Where("transaction_id = ?", orderID))
}

func (s *Store) FindSubscription(ctx context.Context, id int64) (*subscriptionDatamodel.Subscription, error) {
	return first[subscriptionDatamodel.Subscription](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) FindPendingOrder(ctx context.Context, orderID string) (*orderDatamodel.PendingOrder, error) {
	return first[orderDatamodel.PendingOrder](s.db.WithContext(ctx).Where("order_id = ?", orderID))
}

func (s *Store) FindPlan(ctx context.Context, id int64) (*planDatamodel.MembershipPlan, error) {
	return first[planDatamodel.MembershipPlan](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(tx settlement.TxStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{db: tx})
	})
}

type txStore struct {
	db *gorm.DB
}

// ClaimPendingOrder reads the row and deletes it by key. Under concurrent
// claims the second delete waits for the first transaction and then affects
// no row, which is reported as settlement.ErrClaimLost.
func (t *txStore) ClaimPendingOrder(ctx context.Context, orderID string) (*orderDatamodel.PendingOrder, error) {
	o, err := first[orderDatamodel.PendingOrder](t.db.WithContext(ctx).Where("order_id = ?", orderID))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, settlement.ErrClaimLost
	}

	res := t.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&orderDatamodel.PendingOrder{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, settlement.ErrClaimLost
	}
	return o, nil
}

func (t *txStore) CreateSubscription(ctx context.Context, s *subscriptionDatamodel.Subscription) error {
	return t.db.WithContext(ctx).Create(s).Error
}

func (t *txStore) CreatePayment(ctx context.Context, p *paymentDatamodel.Payment) error {
	return t.db.WithContext(ctx).Create(p).Error
}
