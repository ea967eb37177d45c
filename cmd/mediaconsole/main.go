package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/target/media-console/config"
	"github.com/target/media-console/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	return bootstrap.Run(ctx, cfg, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting media console",
		"api_base_url", cfg.API.BaseURL,
		"http_addr", cfg.HTTP.Addr,
		"redis_sentinel", cfg.Redis.UseSentinel,
		"metrics_enabled", cfg.Metrics.Enabled,
		"csrf_enabled", cfg.HTTP.CSRFEnabled,
		"dev", cfg.IsDev)
}
