package config

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// LoginPath is where unauthenticated browsers are sent.
	LoginPath string `env:"APP_LOGIN_PATH" envDefault:"/login"`

	// LandingPath is the default authenticated landing route.
	LandingPath string `env:"APP_LANDING_PATH" envDefault:"/dashboard"`

	// CSRFEnabled turns on double-submit CSRF checks for state-changing requests.
	CSRFEnabled bool `env:"HTTP_CSRF_ENABLED" envDefault:"true"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h.CookieDomain)), ".")
	if h.CookieDomain != "" && isPublicSuffix(h.CookieDomain) {
		// Browsers drop cookies scoped to a public suffix; fall back to host-only cookies.
		h.CookieDomain = ""
	}
	if h.LoginPath == "" || h.LoginPath[0] != '/' {
		h.LoginPath = "/login"
	}
	if h.LandingPath == "" || h.LandingPath[0] != '/' {
		h.LandingPath = "/dashboard"
	}
}

func isPublicSuffix(domain string) bool {
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return suffix == domain
}
