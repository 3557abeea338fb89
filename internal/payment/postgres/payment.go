package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	"github.com/frahmantamala/gym-membership/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) payment.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	err := r.db.WithContext(ctx).Where("transaction_id = ?", orderID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) HasPendingOrder(ctx context.Context, orderID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&orderDatamodel.PendingOrder{}).Where("order_id = ?", orderID).Count(&n).Error
	return n > 0, err
}

func (r *PaymentRepository) MarkRefunded(ctx context.Context, id int64, refund payment.RefundRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND refund_id IS NULL AND status = ?", id, paymentDatamodel.StatusCompleted).
		Updates(map[string]interface{}{
			"status":          paymentDatamodel.StatusRefunded,
			"refund_id":       refund.RefundID,
			"refunded_at":     refund.RefundedAt,
			"refunded_amount": refund.Amount,
			"refund_response": string(refund.Response),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
