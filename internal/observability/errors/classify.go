package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strconv"
	"strings"
)

// statusCoder is implemented by errors that carry an HTTP status from the external API.
type statusCoder interface {
	StatusCode() int
}

// Classify returns a coarse, low-cardinality error class suitable for metric labels and logs.
// Known shapes map to fixed names (canceled, timeout, api_4xx, api_401, ...);
// anything else falls back to the innermost concrete type name in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	var sc statusCoder
	if goerrors.As(err, &sc) {
		status := sc.StatusCode()
		switch {
		case status == 401 || status == 403 || status == 404 || status == 429:
			return "api_" + strconv.Itoa(status)
		case status >= 500:
			return "api_5xx"
		case status >= 400:
			return "api_4xx"
		}
	}

	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
