package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-membership/api"
	"github.com/frahmantamala/gym-membership/internal/auth"
	authPostgres "github.com/frahmantamala/gym-membership/internal/auth/postgres"
	"github.com/frahmantamala/gym-membership/internal/core/checksum"
	"github.com/frahmantamala/gym-membership/internal/member"
	"github.com/frahmantamala/gym-membership/internal/order"
	"github.com/frahmantamala/gym-membership/internal/payment"
	"github.com/frahmantamala/gym-membership/internal/plan"
	"github.com/frahmantamala/gym-membership/internal/subscription"
	"github.com/frahmantamala/gym-membership/internal/transport"
	"github.com/frahmantamala/gym-membership/internal/transport/rest"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server for checkout, gateway callbacks and membership status`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	ctx := context.Background()

	if _, err := api.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid API document: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	opts := rest.Options{
		AllowedOrigins: app.Config.Server.AllowedOrigins,
		RequestLogging: app.Config.Server.Env != "production",
	}
	if app.Redis != nil {
		opts.HealthChecks = map[string]rest.Pinger{
			"redis": func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() },
		}
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, app.SQLX.DB, buildHandlers(app), opts, app.Logger)

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	app.Logger.Info("starting HTTP server", "address", addr, "gateway_enabled", app.Config.Gateway.Enabled)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: app.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       app.Config.Server.ReadTimeout,
		WriteTimeout:      app.Config.Server.WriteTimeout,
		IdleTimeout:       app.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("received signal, shutting down", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("server failed to start", "error", err)
			return
		}
	}

	app.Logger.Info("server stopped")
}

func buildHandlers(app *App) rest.Handlers {
	cfg := app.Config
	base := transport.NewBaseHandler(app.Logger)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(app.DB), tokens, cfg.Security.BCryptCost)

	h := rest.Handlers{
		Auth:         auth.NewHandler(authService),
		RBAC:         auth.NewRBACAuthorization(auth.NewPermissionChecker(), app.Logger),
		Member:       member.NewHandler(base, app.Members),
		Plan:         plan.NewHandler(base, app.Plans, app.Now),
		Subscription: subscription.NewHandler(base, app.Subscriptions, app.Sweeper, app.Now),
		Order:        order.NewHandler(base, app.Initiator),
		Payment: payment.NewHandler(base, app.Payments, payment.RedirectPages{
			Success: cfg.Gateway.SuccessURL,
			Failure: cfg.Gateway.FailureURL,
			Pending: cfg.Gateway.PendingURL,
		}),
	}
	if cfg.Gateway.Enabled {
		salt := checksum.Salt{Key: cfg.Gateway.SaltKey, Index: cfg.Gateway.SaltIndex}
		h.Webhook = payment.NewWebhookHandler(base, app.Reconciler, salt)
	}
	return h
}
