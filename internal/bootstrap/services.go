package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/target/media-console/config"
	"github.com/target/media-console/internal/adapters/apiclient"
	redisstore "github.com/target/media-console/internal/adapters/redis"
	httpx "github.com/target/media-console/internal/http"
	"github.com/target/media-console/internal/observability/metrics"
	"github.com/target/media-console/internal/ports"
	"github.com/target/media-console/internal/service"
)

// ServiceDeps are the external resources NewServices wires together.
type ServiceDeps struct {
	Config config.AppConfig
	Redis  redis.UniversalClient
	Logger *slog.Logger
	// Transport overrides the API client's round tripper (tests).
	Transport http.RoundTripper
	// Registry receives the console's collectors. Nil creates a private registry.
	Registry *prometheus.Registry
}

// ServiceContainer holds the constructed console services.
type ServiceContainer struct {
	API         *apiclient.Client
	Tokens      *redisstore.TokenStore
	Sessions    *service.Registry
	Resources   *service.ResourceService
	Accounts    *service.AccountService
	QuickSearch *service.QuickSearchService
	Overview    *service.OverviewService
	Limiter     *httpx.SessionLimiter

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Ready          httpx.ReadinessCheck
}

// NewServices builds every console service from configuration and a connected Redis client.
func NewServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	api, err := apiclient.New(apiclient.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		ErrorMessagePaths: cfg.API.ErrorMessagePaths,
		Transport:         deps.Transport,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	container := &ServiceContainer{API: api}
	if cfg.Metrics.Enabled {
		reg := deps.Registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		container.Metrics = metrics.New(reg, cfg.Metrics.Namespace)
		container.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	container.Tokens = redisstore.NewTokenStore(deps.Redis, redisstore.TokenStoreOptions{
		Prefix:     cfg.Session.KeyPrefix,
		DefaultTTL: cfg.Session.TokenTTL,
	})
	container.Resources = service.NewResourceService(service.ResourceServiceOptions{
		API:      api,
		CacheTTL: cfg.Session.CacheTTL,
		Logger:   logger,
		Metrics:  container.Metrics,
	})
	container.Accounts = service.NewAccountService(service.AccountServiceOptions{API: api, Logger: logger})
	container.QuickSearch = service.NewQuickSearchService(service.QuickSearchServiceOptions{
		API:      api,
		Interval: cfg.QuickSearch.PollInterval,
		Timeout:  cfg.QuickSearch.Timeout,
		Logger:   logger,
		Metrics:  container.Metrics,
	})
	container.Overview = service.NewOverviewService(service.OverviewServiceOptions{
		API:      api,
		CacheTTL: cfg.Session.CacheTTL,
		Logger:   logger,
	})
	container.Sessions = service.NewRegistry(service.RegistryOptions{
		IdleTTL:  cfg.Session.IdleTTL,
		NewStore: sessionFactory(container.Tokens, api, logger, container.Metrics),
		Tokens:   container.Tokens.ForSession,
		Flushers: []func(sid string){container.Resources.FlushSession},
		Logger:   logger,
		Metrics:  container.Metrics,
	})
	container.Limiter = httpx.NewSessionLimiter(cfg.Session.LoginLimit(), cfg.Session.LoginBurst, cfg.Session.IdleTTL)
	container.Ready = func(ctx context.Context) error {
		return deps.Redis.Ping(ctx).Err()
	}

	return container, nil
}

func sessionFactory(tokens *redisstore.TokenStore, api ports.AuthAPI, logger *slog.Logger, m *metrics.Metrics) service.SessionFactory {
	return func(sid string, reloader ports.Reloader) *service.SessionStore {
		return service.NewSessionStore(service.SessionStoreOptions{
			Tokens:   tokens.ForSession(sid),
			API:      api,
			Reloader: reloader,
			Logger:   logger,
			Metrics:  m,
		})
	}
}
