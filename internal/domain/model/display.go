package model

import (
	"strings"
	"time"
)

// StatusColor maps a job/report/task status to the badge color used by the dashboard.
func StatusColor(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "success", "succeeded", "active":
		return "green"
	case "failed", "error":
		return "red"
	case "running", "in_progress", "processing":
		return "blue"
	case "pending", "queued", "scheduled":
		return "yellow"
	default:
		return "gray"
	}
}

// FormatTimestamp renders an API timestamp (RFC 3339) for display in UTC.
// Unparseable input is returned unchanged; empty input renders as "-".
func FormatTimestamp(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
