package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/media-console/config"
)

// serviceName tags every log line emitted by the console server.
const serviceName = "media-console"

// InitLogger initializes the structured logger. LOG_LEVEL selects the level
// (debug, info, warn, error); anything else falls back to info.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(os.Getenv("LOG_LEVEL")),
	})).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := validateConfig(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// validateConfig rejects settings Sanitize cannot repair.
func validateConfig(cfg config.AppConfig) error {
	var errs []error

	u, err := url.Parse(cfg.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("API_BASE_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("API_BASE_URL %q: scheme must be http or https", cfg.API.BaseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("API_BASE_URL %q: missing host", cfg.API.BaseURL))
	case u.RawQuery != "" || u.Fragment != "":
		errs = append(errs, fmt.Errorf("API_BASE_URL %q: must not carry a query or fragment", cfg.API.BaseURL))
	}

	if cfg.QuickSearch.PollInterval >= cfg.QuickSearch.Timeout {
		errs = append(errs, fmt.Errorf("QUICK_SEARCH_POLL_INTERVAL (%s) must be shorter than QUICK_SEARCH_TIMEOUT (%s)",
			cfg.QuickSearch.PollInterval, cfg.QuickSearch.Timeout))
	}

	return errors.Join(errs...)
}
