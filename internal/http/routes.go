package httpx

import (
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/observability/metrics"
)

// SessionRegistry resolves, re-keys and discards per-browser session stores.
type SessionRegistry interface {
	SessionSource
	SessionLifecycle
}

// SessionSettings configures the session cookie and readiness wait.
type SessionSettings struct {
	CookieName   string
	CookieDomain string
	VerifyWait   time.Duration
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions    SessionRegistry
	Accounts    AccountServiceInterface
	Resources   ResourceServiceInterface
	QuickSearch QuickSearchRunner
	Overview    OverviewSource
	// Optional: credential flow limiter. Nil disables limiting.
	Limiter *SessionLimiter
	// Optional: request metrics and the handler exposing them at /metrics.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	// Optional: CSRF protection for state-changing requests. Nil disables it.
	CSRF *CSRFConfig
	// Optional: dependency probe behind /readyz.
	Ready   ReadinessCheck
	Session SessionSettings
	Paths   GuardPaths
	Logger  *slog.Logger
}

// middleware is the shape shared by every wrapper in this package.
type middleware = func(http.Handler) http.Handler

// chain applies mws so that the first one is outermost.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewRouter creates and configures the console's HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	loader := SessionLoader(SessionLoaderConfig{
		Sessions:     services.Sessions,
		CookieName:   services.Session.CookieName,
		CookieDomain: services.Session.CookieDomain,
		VerifyWait:   services.Session.VerifyWait,
		Logger:       logger,
	})

	authHandlers := &AuthHandlers{
		Accounts:     services.Accounts,
		Sessions:     services.Sessions,
		CookieName:   services.Session.CookieName,
		CookieDomain: services.Session.CookieDomain,
		Paths:        services.Paths,
		Logger:       logger,
	}
	resourceHandlers := &ResourceHandlers{Svc: services.Resources, Logger: logger}
	searchHandlers := &SearchHandlers{QuickSearch: services.QuickSearch, Overview: services.Overview, Logger: logger}

	registerAuthRoutes(mux, authRouteConfig{
		Handlers: authHandlers,
		Loader:   loader,
		Limiter:  services.Limiter,
		Metrics:  services.Metrics,
		Paths:    services.Paths,
	})
	registerAPIRoutes(mux, apiRouteConfig{
		Resources: resourceHandlers,
		Search:    searchHandlers,
		Loader:    loader,
		Paths:     services.Paths,
	})

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Ready, logger))
	if services.MetricsHandler != nil {
		mux.Handle("GET /metrics", services.MetricsHandler)
	}

	outer := []middleware{Recover(logger), Logging(logger), Metrics(services.Metrics)}
	if services.CSRF != nil {
		outer = append(outer, CSRFProtection(*services.CSRF))
	}
	return chain(mux, outer...)
}

type authRouteConfig struct {
	Handlers *AuthHandlers
	Loader   middleware
	Limiter  *SessionLimiter
	Metrics  *metrics.Metrics
	Paths    GuardPaths
}

func registerAuthRoutes(mux *http.ServeMux, cfg authRouteConfig) {
	h := cfg.Handlers
	signedIn := Require(cfg.Paths, domainauth.Requirement{})
	viewer := Require(cfg.Paths, domainauth.Requirement{MinRole: domainauth.RoleViewer})
	impersonator := Require(cfg.Paths, domainauth.Requirement{MinRole: domainauth.RoleAdmin, RequireSuperuser: true})
	limit := func(route string) middleware { return RateLimit(cfg.Limiter, route, cfg.Metrics) }

	mux.Handle("GET /auth/status", chain(http.HandlerFunc(h.Status), cfg.Loader))
	mux.Handle("POST /auth/login", chain(http.HandlerFunc(h.Login), cfg.Loader, limit("login")))
	mux.Handle("POST /auth/signup", chain(http.HandlerFunc(h.Signup), cfg.Loader, limit("signup")))
	mux.Handle("POST /auth/logout", chain(http.HandlerFunc(h.Logout), cfg.Loader))

	mux.Handle("GET /auth/profile", chain(http.HandlerFunc(h.Profile), cfg.Loader, viewer))
	mux.Handle("PATCH /auth/profile", chain(http.HandlerFunc(h.UpdateProfile), cfg.Loader, viewer))
	mux.Handle("POST /auth/change-password",
		chain(http.HandlerFunc(h.ChangePassword), cfg.Loader, viewer, limit("change_password")))

	mux.Handle("POST /auth/impersonate/end", chain(http.HandlerFunc(h.EndImpersonation), cfg.Loader, signedIn))
	mux.Handle("POST /auth/impersonate/{userID}",
		chain(http.HandlerFunc(h.StartImpersonation), cfg.Loader, impersonator))
}

type apiRouteConfig struct {
	Resources *ResourceHandlers
	Search    *SearchHandlers
	Loader    middleware
	Paths     GuardPaths
}

func registerAPIRoutes(mux *http.ServeMux, cfg apiRouteConfig) {
	byResource := Guard(cfg.Paths, resourceRequirement)
	viewer := Require(cfg.Paths, domainauth.Requirement{MinRole: domainauth.RoleViewer})
	r := cfg.Resources

	mux.Handle("GET /api/overview", http.HandlerFunc(cfg.Search.PublicOverview))
	mux.Handle("POST /api/quick-search", chain(http.HandlerFunc(cfg.Search.QuickSearchRun), cfg.Loader, viewer))

	mux.Handle("GET /api/{resource}", chain(http.HandlerFunc(r.List), cfg.Loader, byResource))
	mux.Handle("POST /api/{resource}", chain(http.HandlerFunc(r.Create), cfg.Loader, byResource))
	mux.Handle("GET /api/{resource}/{id}", chain(http.HandlerFunc(r.Get), cfg.Loader, byResource))
	mux.Handle("PATCH /api/{resource}/{id}", chain(http.HandlerFunc(r.Update), cfg.Loader, byResource))
	mux.Handle("DELETE /api/{resource}/{id}", chain(http.HandlerFunc(r.Delete), cfg.Loader, byResource))
}
