// Package scheduler runs the periodic maintenance jobs: the subscription expiry
// sweep and the pending-order resolver.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/frahmantamala/gym-membership/internal"
)

const defaultJobTimeout = 5 * time.Minute

type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context, now time.Time) error
}

// Locker keeps a job from running on two replicas at once. A nil Locker runs
// every job unguarded.
type Locker interface {
	TryLock(ctx context.Context, name string) (unlock func(), ok bool)
}

type Scheduler struct {
	cron   *cron.Cron
	locker Locker
	now    internal.Clock
	logger *slog.Logger
	jobs   []string
}

func New(locker Locker, now internal.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		locker: locker,
		now:    now,
		logger: logger,
	}
}

func (s *Scheduler) Add(job Job) error {
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}
	_, err := s.cron.AddFunc(job.Spec, func() {
		_, _ = s.RunOnce(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	s.jobs = append(s.jobs, job.Name+" @ "+job.Spec)
	return nil
}

// RunOnce runs job now under its lock. It reports false when another replica
// holds the lock and the run was skipped.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (bool, error) {
	log := s.logger.With("job", job.Name)

	if s.locker != nil {
		unlock, ok := s.locker.TryLock(ctx, job.Name)
		if !ok {
			log.Info("job skipped: lock held elsewhere")
			return false, nil
		}
		defer unlock()
	}

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := internal.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	log.Info("job started")
	if err := job.Run(ctx, s.now()); err != nil {
		log.Error("job failed", "error", err, "elapsed", time.Since(start))
		return true, err
	}
	log.Info("job finished", "elapsed", time.Since(start))
	return true, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.jobs)
}

// Stop prevents new runs and returns a context done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
