package config

import (
	"strings"
	"time"
)

// APIConfig points the console at the external media-monitoring REST API.
type APIConfig struct {
	// BaseURL is the API origin, e.g. "https://api.example.com". Paths such as
	// /api/v1/auth/me are appended to it.
	BaseURL string `env:"API_BASE_URL,required"`

	// Timeout bounds every outbound API request.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`

	// ErrorMessagePaths are JMESPath expressions tried in order to pull a
	// human-readable message out of an API error body.
	ErrorMessagePaths []string `env:"API_ERROR_MESSAGE_PATHS" envDefault:"detail[0].msg;detail;message;error.message" envSeparator:";"`
}

// Sanitize trims the base URL and applies a floor to the timeout.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.Timeout <= 0 {
		a.Timeout = 15 * time.Second
	}
}
