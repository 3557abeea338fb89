package postgres

import (
	"context"

	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	"github.com/frahmantamala/gym-membership/internal/order"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) order.RepositoryAPI {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *orderDatamodel.PendingOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}
