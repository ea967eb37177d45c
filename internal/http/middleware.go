package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/observability/metrics"
	"github.com/target/media-console/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routeOf(r)),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// routeOf returns the ServeMux pattern that served r. The mux records it on the
// request it was handed, so this only works for middleware wrapped around the mux.
func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: "internal",
						Err:     errors.New(http.StatusText(http.StatusInternalServerError)),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics returns a middleware that records request counts and latency per route.
// A nil m disables recording.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			m.HTTPRequest(r.Method, routeOf(r), ww.status, time.Since(start))
		})
	}
}

// SessionSource hands out the live session store for a browser session id.
type SessionSource interface {
	Get(ctx context.Context, sid string) *service.SessionStore
}

// SessionLoaderConfig configures SessionLoader.
type SessionLoaderConfig struct {
	Sessions     SessionSource
	CookieName   string
	CookieDomain string
	// VerifyWait bounds how long a request waits for an initializing session.
	VerifyWait time.Duration
	Logger     *slog.Logger
}

// SessionLoader resolves the browser's session store, issuing a session cookie
// when the browser has none, and puts it on the request context.
// It waits up to VerifyWait for the store to finish loading; a store still
// loading after that is passed on as-is and the guard answers pending.
func SessionLoader(cfg SessionLoaderConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookieName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := sessionID(r, cfg.CookieName)
			if sid == "" {
				sid = uuid.NewString()
				setSessionCookie(w, r, sessionCookieParams{Name: cfg.CookieName, Domain: cfg.CookieDomain, Value: sid})
				logger.DebugContext(r.Context(), "issued session cookie")
			}

			store := cfg.Sessions.Get(r.Context(), sid)
			waitReady(r.Context(), store, cfg.VerifyWait)

			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sid, store)))
		})
	}
}

func waitReady(ctx context.Context, store *service.SessionStore, wait time.Duration) {
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-store.Ready():
	case <-timer.C:
	case <-ctx.Done():
	}
}

// sessionID returns the session cookie value when it is a well-formed id.
// Anything else is treated as absent. Sign-in re-keys the session (see
// rotateSession), so an id chosen before sign-in never names a signed-in session.
func sessionID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if err := uuid.Validate(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// GuardPaths are the client routes the guard points callers at.
type GuardPaths struct {
	Login   string
	Landing string
}

// RequirementFunc derives what a request demands of the session.
type RequirementFunc func(r *http.Request) domainauth.Requirement

// Require returns a guard with a fixed requirement.
func Require(paths GuardPaths, req domainauth.Requirement) func(http.Handler) http.Handler {
	return Guard(paths, func(*http.Request) domainauth.Requirement { return req })
}

// Guard returns a middleware that admits a request only when the session in its
// context satisfies the requirement. Loading sessions get 503 so nothing about
// the protected route is disclosed; otherwise callers are told where to go.
// Must run after SessionLoader.
func Guard(paths GuardPaths, requirement RequirementFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := GetSessionFromContext(r.Context())
			if !ok {
				writeGuardResponse(w, paths, domainauth.DecisionRedirectLogin)
				return
			}

			decision := domainauth.Decide(store.Snapshot(), requirement(r))
			if decision != domainauth.DecisionAllow {
				writeGuardResponse(w, paths, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeGuardResponse(w http.ResponseWriter, paths GuardPaths, d domainauth.Decision) {
	switch d {
	case domainauth.DecisionPending:
		w.Header().Set("Retry-After", "1")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "session_pending",
			"message": "session is still loading",
		})
	case domainauth.DecisionRedirectLogin:
		WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error":       "authentication_required",
			"message":     "authentication required",
			"redirect_to": paths.Login,
		})
	default:
		WriteJSON(w, http.StatusForbidden, map[string]string{
			"error":       "insufficient_permissions",
			"message":     "insufficient permissions",
			"redirect_to": paths.Landing,
		})
	}
}
