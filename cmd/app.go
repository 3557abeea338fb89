package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/events"
	"github.com/frahmantamala/gym-membership/internal/member"
	memberPostgres "github.com/frahmantamala/gym-membership/internal/member/postgres"
	"github.com/frahmantamala/gym-membership/internal/notification"
	"github.com/frahmantamala/gym-membership/internal/order"
	orderPostgres "github.com/frahmantamala/gym-membership/internal/order/postgres"
	"github.com/frahmantamala/gym-membership/internal/payment"
	paymentPostgres "github.com/frahmantamala/gym-membership/internal/payment/postgres"
	"github.com/frahmantamala/gym-membership/internal/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/plan"
	planPostgres "github.com/frahmantamala/gym-membership/internal/plan/postgres"
	"github.com/frahmantamala/gym-membership/internal/settlement"
	settlementPostgres "github.com/frahmantamala/gym-membership/internal/settlement/postgres"
	"github.com/frahmantamala/gym-membership/internal/subscription"
	subscriptionPostgres "github.com/frahmantamala/gym-membership/internal/subscription/postgres"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

// App holds the services shared by the server and worker commands.
type App struct {
	Config *internal.Config
	SQLX   *sqlx.DB
	DB     *gorm.DB
	Redis  *redis.Client
	Bus    *events.EventBus
	Logger *slog.Logger
	Now    internal.Clock

	Plans         *plan.Service
	Members       *member.Service
	Subscriptions *subscription.Service
	Sweeper       *subscription.Sweeper
	Reconciler    *settlement.Reconciler
	Report        *settlement.Report
	Client        *paymentgateway.Client
	Initiator     *order.Initiator
	Payments      *payment.Service
	Resolver      *payment.Resolver
}

func newApp(ctx context.Context) (*App, error) {
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	sqlxDB, gormDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config: cfg,
		SQLX:   sqlxDB,
		DB:     gormDB,
		Bus:    events.NewEventBus(lg),
		Logger: lg,
		Now:    internal.SystemClock,
	}

	if cfg.Redis.Addr != "" {
		app.Redis, err = initRedis(ctx, cfg.Redis)
		if err != nil {
			_ = sqlxDB.Close()
			return nil, err
		}
	}

	app.wire()
	return app, nil
}

func (a *App) wire() {
	cfg := a.Config

	a.Members = member.NewService(memberPostgres.NewMemberRepository(a.DB))
	a.Subscriptions = subscription.NewService(subscriptionPostgres.NewSubscriptionRepository(a.DB), a.Logger)
	a.Sweeper = subscription.NewSweeper(subscriptionPostgres.NewSubscriptionRepository(a.DB), a.Bus, a.Logger)
	a.Plans = plan.NewService(planPostgres.NewPlanRepository(a.DB), a.Subscriptions, a.Logger)
	a.Reconciler = settlement.NewReconciler(settlementPostgres.NewStore(a.DB), a.Bus, a.Now, settlement.DefaultConfig(), a.Logger)
	a.Report = settlement.NewReport(a.SQLX)

	var (
		createGateway  order.Gateway
		paymentGateway payment.Gateway
	)
	if cfg.Gateway.Enabled {
		a.Client = paymentgateway.NewClient(paymentgateway.ConfigFrom(cfg.Gateway), a.Logger)
		createGateway = a.Client
		paymentGateway = a.Client
	}

	a.Initiator = order.NewInitiator(
		order.Config{Enabled: cfg.Gateway.Enabled, CallbackBaseURL: cfg.Gateway.CallbackBaseURL},
		orderPostgres.NewOrderRepository(a.DB),
		a.Plans,
		a.Members,
		a.Subscriptions,
		createGateway,
		a.Now,
		a.Logger,
	)
	a.Payments = payment.NewService(paymentPostgres.NewPaymentRepository(a.DB), paymentGateway, a.Reconciler, a.Now, a.Logger)
	a.Resolver = payment.NewResolver(a.Report, a.Payments, payment.ResolverConfig{
		MinAge:     cfg.Scheduler.PendingMinAge,
		StaleAfter: cfg.Scheduler.StaleAfter,
	}, a.Logger)

	var publisher notification.Publisher = notification.NewLogPublisher(a.Logger)
	if a.Redis != nil {
		publisher = notification.NewRedisPublisher(a.Redis, cfg.Redis.NotificationChannel, cfg.Redis.NotificationOutbox)
	}
	notification.NewDispatcher(a.Members, publisher, a.Now, a.Logger).RegisterEventHandlers(a.Bus)
}

// Close waits for in-flight event handlers before releasing connections.
func (a *App) Close() {
	a.Bus.Wait()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if err := a.SQLX.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB opens one pgx pool and shares it between sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), &gorm.Config{})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return dbConn, gormDB, nil
}

func initRedis(ctx context.Context, cfg internal.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
