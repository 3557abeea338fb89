package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/notification"
	"github.com/frahmantamala/gym-membership/internal/settlement"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Operational reports",
}

var settlementReportCmd = &cobra.Command{
	Use:   "settlement",
	Short: "List gateway payments and orders still awaiting settlement",
	Long: `Print gateway payments recorded since --since and pending orders older than
--stale-after as JSON, for comparison against the provider dashboard. When Redis
is configured the oldest --outbox undelivered notifications are included.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSettlementReport(cmd)
	},
}

var (
	reportSince      time.Duration
	reportStaleAfter time.Duration
	reportOutbox     int64
)

type settlementReport struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Since       time.Time                     `json:"since"`
	StaleBefore time.Time                     `json:"stale_before"`
	Payments    []settlement.GatewayPayment   `json:"payments"`
	Outstanding []settlement.OutstandingOrder `json:"outstanding_orders"`
	Outbox      []notification.Message        `json:"notification_outbox,omitempty"`
}

func runSettlementReport(cmd *cobra.Command) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	sqlxDB, _, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer sqlxDB.Close()

	now := time.Now().UTC()
	out := settlementReport{
		GeneratedAt: now,
		Since:       now.Add(-reportSince),
		StaleBefore: now.Add(-reportStaleAfter),
	}

	report := settlement.NewReport(sqlxDB)
	if out.Payments, err = report.GatewayPayments(cmd.Context(), out.Since); err != nil {
		return fmt.Errorf("gateway payments: %w", err)
	}
	if out.Outstanding, err = report.OutstandingOrders(cmd.Context(), out.StaleBefore); err != nil {
		return fmt.Errorf("outstanding orders: %w", err)
	}

	if cfg.Redis.Addr != "" && reportOutbox > 0 {
		client, err := initRedis(cmd.Context(), cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		if out.Outbox, err = outboxHead(cmd.Context(), client, cfg.Redis, reportOutbox); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// outboxHead reads the n oldest notifications still waiting in the outbox.
func outboxHead(ctx context.Context, client *redis.Client, cfg internal.RedisConfig, n int64) ([]notification.Message, error) {
	msgs, err := notification.NewRedisPublisher(client, cfg.NotificationChannel, cfg.NotificationOutbox).Pending(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("notification outbox: %w", err)
	}
	return msgs, nil
}

func init() {
	settlementReportCmd.Flags().DurationVar(&reportSince, "since", 24*time.Hour, "include gateway payments from this far back")
	settlementReportCmd.Flags().DurationVar(&reportStaleAfter, "stale-after", 24*time.Hour, "list pending orders older than this")
	settlementReportCmd.Flags().Int64Var(&reportOutbox, "outbox", 20, "number of undelivered notifications to include, 0 to skip")

	reportCmd.AddCommand(settlementReportCmd)
	rootCmd.AddCommand(reportCmd)
}
