package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/settlement"
)

type OutstandingLister interface {
	OutstandingOrders(ctx context.Context, olderThan time.Time) ([]settlement.OutstandingOrder, error)
}

type ResolverConfig struct {
	// MinAge leaves fresh orders to the webhook and redirect.
	MinAge     time.Duration
	StaleAfter time.Duration
}

type ResolveSummary struct {
	Checked int `json:"checked"`
	Settled int `json:"settled"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Stale   int `json:"stale"`
	Errors  int `json:"errors"`
}

// Resolver settles orders whose webhook and redirect were both lost.
type Resolver struct {
	orders  OutstandingLister
	service ServiceAPI
	cfg     ResolverConfig
	logger  *slog.Logger
}

func NewResolver(orders OutstandingLister, service ServiceAPI, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		orders:  orders,
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// ResolvePending checks every pending order older than MinAge with the provider
// and reconciles those in a terminal state. One failing order does not stop the run.
func (r *Resolver) ResolvePending(ctx context.Context, now time.Time) (*ResolveSummary, error) {
	orders, err := r.orders.OutstandingOrders(ctx, now.Add(-r.cfg.MinAge))
	if err != nil {
		return nil, internal.NewInternalError("failed to list outstanding orders", err)
	}

	summary := &ResolveSummary{}
	for _, o := range orders {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++
		log := r.logger.With("order_id", o.OrderID, "member_id", o.MemberID)

		res, err := r.service.Resolve(ctx, o.OrderID)
		if err != nil {
			summary.Errors++
			log.Warn("could not resolve pending order", "error", err)
			continue
		}

		switch res.Status {
		case settlement.StatusSettled, settlement.StatusAlreadySettled:
			summary.Settled++
		case settlement.StatusFailed:
			summary.Failed++
		default:
			summary.Pending++
			if r.cfg.StaleAfter > 0 && now.Sub(o.CreatedAt) > r.cfg.StaleAfter {
				summary.Stale++
				log.Warn("pending order is stale", "created_at", o.CreatedAt, "amount", o.Amount.StringFixed(2))
			}
		}
	}

	r.logger.Info("pending order resolution finished",
		"checked", summary.Checked,
		"settled", summary.Settled,
		"failed", summary.Failed,
		"pending", summary.Pending,
		"stale", summary.Stale,
		"errors", summary.Errors)
	return summary, nil
}
