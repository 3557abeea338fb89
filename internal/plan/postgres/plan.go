package postgres

import (
	"context"
	"errors"

	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	"github.com/frahmantamala/gym-membership/internal/plan"
	"gorm.io/gorm"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) plan.RepositoryAPI {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*planDatamodel.MembershipPlan, error) {
	var p planDatamodel.MembershipPlan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]*planDatamodel.MembershipPlan, error) {
	var plans []*planDatamodel.MembershipPlan
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("price ASC, id ASC").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) Create(ctx context.Context, p *planDatamodel.MembershipPlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}
