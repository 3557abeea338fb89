package plan

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*planDatamodel.MembershipPlan, error)
	ListActive(ctx context.Context) ([]*planDatamodel.MembershipPlan, error)
	Create(ctx context.Context, plan *planDatamodel.MembershipPlan) error
}

// MembershipChecker answers the admission-fee waiver question.
type MembershipChecker interface {
	HasActiveSubscription(ctx context.Context, memberID int64, now time.Time) (bool, error)
}

type Service struct {
	repo       RepositoryAPI
	membership MembershipChecker
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, membership MembershipChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		membership: membership,
		logger:     logger,
	}
}

// Lookup returns an active plan. Missing and inactive plans are both PLAN_NOT_FOUND.
func (s *Service) Lookup(ctx context.Context, id int64) (*Plan, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load plan", err)
	}
	if m == nil || !m.IsActive {
		return nil, internal.ErrPlanNotFound
	}
	return FromDataModel(m), nil
}

func (s *Service) ListWithPayable(ctx context.Context, memberID int64, now time.Time) ([]PlanResponse, error) {
	models, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list plans", "error", err)
		return nil, internal.NewInternalError("failed to list plans", err)
	}

	waive, err := s.membership.HasActiveSubscription(ctx, memberID, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to check membership", err)
	}

	responses := make([]PlanResponse, 0, len(models))
	for _, m := range models {
		responses = append(responses, FromDataModel(m).ToResponse(waive))
	}
	return responses, nil
}
