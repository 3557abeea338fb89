package postgres

import (
	"context"
	"errors"
	"time"

	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
	"github.com/frahmantamala/gym-membership/internal/subscription"
	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) subscription.RepositoryAPI {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) FindActive(ctx context.Context, memberID int64, today time.Time) (*subscriptionDatamodel.Subscription, error) {
	var sub subscriptionDatamodel.Subscription
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND status = ? AND end_date >= ?", memberID, subscriptionDatamodel.StatusActive, today).
		Order("end_date DESC, id DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListExpirable(ctx context.Context, today time.Time) ([]*subscriptionDatamodel.Subscription, error) {
	var subs []*subscriptionDatamodel.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", subscriptionDatamodel.StatusActive, today).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) ExpireIfActive(ctx context.Context, id int64, today time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&subscriptionDatamodel.Subscription{}).
		Where("id = ? AND status = ? AND end_date < ?", id, subscriptionDatamodel.StatusActive, today).
		Updates(map[string]interface{}{
			"status":     subscriptionDatamodel.StatusExpired,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
