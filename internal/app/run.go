package app

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"message-gateway/internal/common/logging"
	"message-gateway/internal/config"
)

// ShutdownTimeout bounds the graceful shutdown
const ShutdownTimeout = 30 * time.Second

// Run starts the gateway and blocks until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func Run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	logger.Info("Starting message gateway",
		logging.Int("cpus", runtime.NumCPU()),
		logging.String("version", Version),
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", err)
		return err
	}

	file, err := config.LoadRoutingFile(cfg.RoutingConfig)
	if err != nil {
		logger.Error("Failed to load routing file", err, logging.String("path", cfg.RoutingConfig))
		return err
	}

	app, err := New(cfg, file, logger)
	if err != nil {
		logger.Error("Failed to initialize application", err)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("Failed to start consumers", err)
		app.Cleanup()
		return err
	}

	srv := app.NewServer()
	if err := srv.Start(); err != nil {
		logger.Error("Server failed to start", err)
		_ = app.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", logging.Err(err))
	}
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error during gateway shutdown", logging.Err(err))
		return err
	}

	logger.Info("Gateway exited")
	return nil
}
