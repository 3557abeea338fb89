package scheduler

import (
	"context"
	"time"

	"github.com/frahmantamala/gym-membership/internal/payment"
)

type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type PendingResolver interface {
	ResolvePending(ctx context.Context, now time.Time) (*payment.ResolveSummary, error)
}

const (
	JobExpirySweep    = "expiry-sweep"
	JobResolvePending = "resolve-pending"
)

func ExpiryJob(spec string, sweeper Sweeper) Job {
	return Job{
		Name: JobExpirySweep,
		Spec: spec,
		Run: func(ctx context.Context, now time.Time) error {
			_, err := sweeper.Sweep(ctx, now)
			return err
		},
	}
}

func ResolveJob(spec string, resolver PendingResolver) Job {
	return Job{
		Name: JobResolvePending,
		Spec: spec,
		Run: func(ctx context.Context, now time.Time) error {
			_, err := resolver.ResolvePending(ctx, now)
			return err
		},
	}
}
