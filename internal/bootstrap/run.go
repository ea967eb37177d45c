package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/media-console/config"
)

// Run connects infrastructure, serves the console and blocks until a shutdown signal
// or a server failure.
func Run(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	rdb, err := ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if closeErr := rdb.Close(); closeErr != nil {
			logger.Error("failed to close redis client", "error", closeErr)
		}
	}()

	services, err := NewServices(ServiceDeps{Config: cfg, Redis: rdb, Logger: logger})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(&HTTPServerConfig{Config: &cfg, Services: services, Logger: logger}, errCh)

	return waitForShutdown(shutdownConfig{
		ctx:        ctx,
		errCh:      errCh,
		httpServer: server,
		logger:     logger,
	})
}

type shutdownConfig struct {
	ctx        context.Context
	errCh      <-chan error
	httpServer *http.Server
	logger     *slog.Logger
}

func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down...")
		return ShutdownHTTPServer(context.WithoutCancel(cfg.ctx), cfg.httpServer, cfg.logger)
	case <-cfg.ctx.Done():
		cfg.logger.Info("context cancelled, shutting down...")
		return ShutdownHTTPServer(context.WithoutCancel(cfg.ctx), cfg.httpServer, cfg.logger)
	case err := <-cfg.errCh:
		if stopErr := ShutdownHTTPServer(context.WithoutCancel(cfg.ctx), cfg.httpServer, cfg.logger); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return err
	}
}
