package config

import (
	"time"

	"golang.org/x/time/rate"
)

// SessionConfig controls browser sessions, durable token storage and credential flows.
type SessionConfig struct {
	// CookieName is the name of the opaque browser session cookie.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"console_sid"`

	// IdleTTL evicts in-memory session stores that have not been touched.
	// Durable tokens survive eviction; the next request re-verifies them.
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	// VerifyWait is how long a request waits for an initializing session
	// before the guard answers with a pending response.
	VerifyWait time.Duration `env:"SESSION_VERIFY_WAIT" envDefault:"3s"`

	// TokenTTL is the storage TTL for tokens whose expiry cannot be read.
	TokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`

	// KeyPrefix namespaces token keys in Redis.
	KeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"console:"`

	// CacheTTL bounds how long a fetched collection is served from cache.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"1m"`

	// LoginRate and LoginBurst limit credential flows per browser session.
	LoginRate  float64 `env:"LOGIN_RATE_PER_SECOND" envDefault:"0.2"`
	LoginBurst int     `env:"LOGIN_RATE_BURST"      envDefault:"5"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.CookieName == "" {
		s.CookieName = "console_sid"
	}
	if s.IdleTTL <= 0 {
		s.IdleTTL = 30 * time.Minute
	}
	if s.VerifyWait < 0 {
		s.VerifyWait = 0
	}
	if s.TokenTTL <= 0 {
		s.TokenTTL = 24 * time.Hour
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = "console:"
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = time.Minute
	}
	if s.LoginRate <= 0 {
		s.LoginRate = 0.2
	}
	if s.LoginBurst < 1 {
		s.LoginBurst = 1
	}
}

// LoginLimit returns the credential flow rate as a rate.Limit.
func (s *SessionConfig) LoginLimit() rate.Limit { return rate.Limit(s.LoginRate) }

// QuickSearchConfig controls the fire-and-poll quick search flow.
type QuickSearchConfig struct {
	// PollInterval is the delay between status checks.
	PollInterval time.Duration `env:"QUICK_SEARCH_POLL_INTERVAL" envDefault:"500ms"`

	// Timeout bounds a whole quick search run, including polling.
	Timeout time.Duration `env:"QUICK_SEARCH_TIMEOUT" envDefault:"2m"`
}

// MaxQuickSearchTimeout caps Timeout. The BFF holds a request open for a whole
// run, so its write timeout is sized from this value.
const MaxQuickSearchTimeout = 10 * time.Minute

// Sanitize clamps polling settings to workable values.
func (q *QuickSearchConfig) Sanitize() {
	if q.PollInterval < 50*time.Millisecond {
		q.PollInterval = 50 * time.Millisecond
	}
	if q.Timeout <= 0 {
		q.Timeout = 2 * time.Minute
	}
	if q.Timeout > MaxQuickSearchTimeout {
		q.Timeout = MaxQuickSearchTimeout
	}
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED"   envDefault:"true"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"media_console"`
}
