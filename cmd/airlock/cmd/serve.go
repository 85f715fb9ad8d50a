package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/server"
	"github.com/airlock-sh/airlock/pkg/core/health"
	"github.com/airlock-sh/airlock/pkg/core/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/WebSocket gateway",
	Long: `Starts the gateway in front of the engine.

Endpoints:
  POST /api/v1/intents                     submit and simulate an intent
  POST /api/v1/plans/{id}/approve          mint an approval token
  POST /api/v1/plans/{id}/execute          gate and execute
  GET  /api/v1/audit/records               query the trail
  GET  /ws/audit                           live audit record stream
  GET  /health                             health report`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}
	logger := newLogger(cfg)

	trail, err := audit.NewSQLiteTrail(audit.SQLiteConfig{Path: cfg.Audit.StorePath})
	if err != nil {
		printError("opening audit trail", err)
		return err
	}
	defer trail.Close()

	svc, err := newService(cfg, trail, logger)
	if err != nil {
		printError("assembling engine", err)
		return err
	}

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		Version:      version.Version,
	}, svc)

	srv.HealthRegistry().RegisterFunc("policy", func(ctx context.Context) health.CheckResult {
		if _, err := loadPolicy(cfg); err != nil {
			return health.CheckResult{Name: "policy", Status: health.StatusUnhealthy, Message: err.Error()}
		}
		return health.CheckResult{Name: "policy", Status: health.StatusHealthy, Message: "policy pack loaded"}
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		printError("gateway", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		printError("stopping gateway", err)
		return err
	}
	logger.Info("gateway stopped")
	return nil
}
