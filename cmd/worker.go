package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-membership/internal/scheduler"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers such as the maintenance scheduler`,
}

var schedulerWorkerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the expiry sweep and pending-order resolver on their cron schedules",
	Long: `Run the periodic maintenance jobs. With Redis configured each run takes a
named lock so only one replica executes a given job at a time. Use --run-once
to execute a single job immediately and exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startScheduler(cmd.Context())
	},
}

var runOnce string

func startScheduler(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config.Scheduler
	var locker scheduler.Locker
	if app.Redis != nil {
		locker = scheduler.NewRedisLocker(app.Redis, cfg.LockTTL, app.Logger)
	} else {
		app.Logger.Warn("redis not configured; scheduler jobs run without a lock")
	}

	s := scheduler.New(locker, app.Now, app.Logger)
	jobs := []scheduler.Job{
		scheduler.ExpiryJob(cfg.ExpiryCron, app.Sweeper),
		scheduler.ResolveJob(cfg.ResolveCron, app.Resolver),
	}

	if runOnce != "" {
		for _, job := range jobs {
			if job.Name != runOnce {
				continue
			}
			ran, err := s.RunOnce(ctx, job)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Println("skipped: another worker holds the lock")
			}
			return nil
		}
		return fmt.Errorf("unknown job %q", runOnce)
	}

	for _, job := range jobs {
		if err := s.Add(job); err != nil {
			return err
		}
	}
	s.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	app.Logger.Info("received signal, stopping scheduler", "signal", sig)

	select {
	case <-s.Stop().Done():
		app.Logger.Info("scheduler stopped")
	case <-time.After(30 * time.Second):
		app.Logger.Warn("shutdown timeout reached, abandoning running jobs")
	}
	return nil
}

func init() {
	schedulerWorkerCmd.Flags().StringVar(&runOnce, "run-once", "",
		fmt.Sprintf("run one job now and exit (%s|%s)", scheduler.JobExpirySweep, scheduler.JobResolvePending))

	workerCmd.AddCommand(schedulerWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
