package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/events"
)

// Sweeper retires subscriptions whose last active day is before today.
type Sweeper struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewSweeper(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, publisher: publisher, logger: logger}
}

// Sweep expires every active subscription with end_date < today(now) and returns
// how many rows it transitioned. Each row is updated conditionally, so a row
// renewed or edited between the scan and the update is left alone and a
// concurrent sweep never double counts.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	today := internal.StartOfDay(now)

	candidates, err := s.repo.ListExpirable(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list expirable subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range candidates {
		changed, err := s.repo.ExpireIfActive(ctx, sub.ID, today)
		if err != nil {
			s.logger.Error("failed to expire subscription", "subscription_id", sub.ID, "error", err)
			continue
		}
		if !changed {
			continue
		}
		expired++

		event := events.NewSubscriptionExpiredEvent(sub.ID, sub.MemberID, sub.PlanID, sub.EndDate)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish expiry event", "subscription_id", sub.ID, "error", err)
		}
	}

	s.logger.Info("expiry sweep finished", "today", today.Format(time.DateOnly), "candidates", len(candidates), "expired", expired)
	return expired, nil
}
