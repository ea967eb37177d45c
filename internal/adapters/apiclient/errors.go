package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// DefaultMessagePaths are tried when Config.ErrorMessagePaths is empty.
var DefaultMessagePaths = []string{"detail[0].msg", "detail", "message", "error.message"}

// APIError is a non-2xx response from the external API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is an APIError with status 403.
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server-provided message carried by err, or "".
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

func hasStatus(err error, status int) bool {
	return StatusOf(err) == status
}

// messageExtractor pulls a human-readable message out of a JSON error body.
type messageExtractor struct {
	paths []string
}

func newMessageExtractor(paths []string) (*messageExtractor, error) {
	if len(paths) == 0 {
		paths = DefaultMessagePaths
	}
	clean := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := jmespath.Compile(p); err != nil {
			return nil, fmt.Errorf("invalid error message path %q: %w", p, err)
		}
		clean = append(clean, p)
	}
	return &messageExtractor{paths: clean}, nil
}

// extract returns the first string found at one of the configured paths.
// Non-JSON bodies yield their trimmed text when short.
func (m *messageExtractor) extract(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
			return trimmed
		}
		return ""
	}

	for _, p := range m.paths {
		v, err := jmespath.Search(p, data)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func (m *messageExtractor) apiError(status int, body []byte) *APIError {
	return &APIError{Status: status, Message: m.extract(body)}
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int { return e.Status }

// ServerMessage returns the message the API put in the error body, if any.
func (e *APIError) ServerMessage() string { return e.Message }
