package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
)

type RepositoryAPI interface {
	// FindActive returns the active subscription with the latest end date on or after today, or nil.
	FindActive(ctx context.Context, memberID int64, today time.Time) (*subscriptionDatamodel.Subscription, error)
	ListExpirable(ctx context.Context, today time.Time) ([]*subscriptionDatamodel.Subscription, error)
	// ExpireIfActive flips one row to expired only if it is still active and past today.
	ExpireIfActive(ctx context.Context, id int64, today time.Time) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// HasActiveSubscription is evaluated on every call; nothing is cached.
func (s *Service) HasActiveSubscription(ctx context.Context, memberID int64, now time.Time) (bool, error) {
	sub, err := s.repo.FindActive(ctx, memberID, internal.StartOfDay(now))
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

func (s *Service) Current(ctx context.Context, memberID int64, now time.Time) (*CurrentResponse, error) {
	sub, err := s.repo.FindActive(ctx, memberID, internal.StartOfDay(now))
	if err != nil {
		s.logger.Error("failed to load current subscription", "member_id", memberID, "error", err)
		return nil, internal.NewInternalError("failed to load subscription", err)
	}
	if sub == nil {
		return &CurrentResponse{Active: false}, nil
	}
	return toCurrent(sub, now), nil
}
