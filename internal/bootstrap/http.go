package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/media-console/config"
	httpx "github.com/target/media-console/internal/http"
)

const (
	csrfCookieName = "console_csrf"
	csrfHeaderName = "X-CSRF-Token"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// BuildHandler assembles the console router from the service container.
func BuildHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	svc := cfg.Services

	services := httpx.RouterServices{
		Sessions:       svc.Sessions,
		Accounts:       svc.Accounts,
		Resources:      svc.Resources,
		QuickSearch:    svc.QuickSearch,
		Overview:       svc.Overview,
		Limiter:        svc.Limiter,
		Metrics:        svc.Metrics,
		MetricsHandler: svc.MetricsHandler,
		Ready:          svc.Ready,
		Session: httpx.SessionSettings{
			CookieName:   appCfg.Session.CookieName,
			CookieDomain: appCfg.HTTP.CookieDomain,
			VerifyWait:   appCfg.Session.VerifyWait,
		},
		Paths: httpx.GuardPaths{
			Login:   appCfg.HTTP.LoginPath,
			Landing: appCfg.HTTP.LandingPath,
		},
		Logger: logger,
	}
	if appCfg.HTTP.CSRFEnabled {
		services.CSRF = &httpx.CSRFConfig{
			CookieName:   csrfCookieName,
			HeaderName:   csrfHeaderName,
			CookieDomain: appCfg.HTTP.CookieDomain,
		}
	}

	return httpx.NewRouter(services)
}

// StartHTTPServer creates and starts the HTTP server.
// Listen failures are delivered on errCh.
func StartHTTPServer(cfg *HTTPServerConfig, errCh chan<- error) *http.Server {
	if cfg == nil || cfg.Services == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := ":8080"
	var searchTimeout time.Duration
	if cfg.Config != nil {
		if cfg.Config.HTTP.Addr != "" {
			addr = cfg.Config.HTTP.Addr
		}
		searchTimeout = cfg.Config.QuickSearch.Timeout
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      BuildHandler(cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(searchTimeout),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			if errCh != nil {
				errCh <- err
			}
		}
	}()

	return server
}

const (
	baseWriteTimeout   = 30 * time.Second
	writeTimeoutMargin = 15 * time.Second
)

// writeTimeout leaves room for a quick search, which is polled to completion
// inside the request, to write its result.
func writeTimeout(searchTimeout time.Duration) time.Duration {
	return max(baseWriteTimeout, searchTimeout+writeTimeoutMargin)
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
