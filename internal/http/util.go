package httpx

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/target/media-console/internal/domain/model"
)

// Default and maximum page sizes for console list endpoints.
const (
	defaultListLimit = model.DefaultLimit
	maxListLimit     = 200
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(q url.Values, key string, def int) int {
	if v := q.Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ParseSkipLimit parses the console's skip/limit window and clamps it to sane bounds.
// Callers may send page/page_size instead; those are translated to skip/limit.
func ParseSkipLimit(r *http.Request, defLimit, maxLimit int) (int, int) {
	if maxLimit < 1 {
		maxLimit = 1
	}
	q := r.URL.Query()

	var skip, limit int
	if q.Has("page") || q.Has("page_size") {
		skip, limit = model.FromPage(parseIntQuery(q, "page", 1), parseIntQuery(q, "page_size", defLimit))
	} else {
		skip = parseIntQuery(q, "skip", 0)
		limit = parseIntQuery(q, "limit", defLimit)
	}

	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

// listFilters returns the query parameters that are not part of the paging window.
func listFilters(r *http.Request) url.Values {
	out := url.Values{}
	for k, v := range r.URL.Query() {
		switch k {
		case "skip", "limit", "page", "page_size":
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
