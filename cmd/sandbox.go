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

	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-membership/internal/paymentgateway"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run an in-process payment provider for local development",
	Long: `Serve the provider API (pay, status, refund) and a hosted checkout page using
the merchant credentials from the gateway config. Each payment is settled after
a short delay and reported to the order's callback URL with a signed webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startSandbox()
	},
}

var (
	sandboxPort    int
	sandboxWorkers int
	sandboxQueue   int
)

func startSandbox() error {
	cfg, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	publicURL := fmt.Sprintf("http://localhost:%d", sandboxPort)
	sb := paymentgateway.NewSandbox(paymentgateway.SandboxConfig{
		MerchantID: cfg.Gateway.MerchantID,
		SaltKey:    cfg.Gateway.SaltKey,
		SaltIndex:  cfg.Gateway.SaltIndex,
		PublicURL:  publicURL,
		MaxWorkers: sandboxWorkers,
		QueueSize:  sandboxQueue,
	}, lg)
	defer sb.Shutdown()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", sandboxPort),
		Handler:           sb,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()
	lg.Info("sandbox provider listening", "url", publicURL, "merchant_id", cfg.Gateway.MerchantID)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down sandbox", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func init() {
	sandboxCmd.Flags().IntVar(&sandboxPort, "port", 8090, "listen port")
	sandboxCmd.Flags().IntVar(&sandboxWorkers, "workers", 4, "settlement workers")
	sandboxCmd.Flags().IntVar(&sandboxQueue, "queue-size", 100, "pending settlement queue size")

	rootCmd.AddCommand(sandboxCmd)
}
