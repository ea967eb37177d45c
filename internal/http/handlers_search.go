package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/media-console/internal/domain/model"
	"github.com/target/media-console/internal/service"
)

// QuickSearchRunner runs a fire-and-poll search to completion.
type QuickSearchRunner interface {
	Run(ctx context.Context, token string, req json.RawMessage, progress func(model.TaskStatus)) (model.TaskStatus, error)
}

// OverviewSource returns the combined public analytics.
type OverviewSource interface {
	Overview(ctx context.Context) (map[string]json.RawMessage, error)
}

// SearchHandlers serves quick search and the public overview.
type SearchHandlers struct {
	QuickSearch QuickSearchRunner
	Overview    OverviewSource
	Logger      *slog.Logger
}

func (h *SearchHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// QuickSearchRun starts a quick search and polls it within the request.
// A client disconnect cancels the request context and with it the polling.
// POST /api/quick-search.
func (h *SearchHandlers) QuickSearchRun(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}

	status, err := h.QuickSearch.Run(r.Context(), store.Token(), body, nil)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, status)
	case errors.Is(err, service.ErrQuickSearchFailed):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "quick_search_failed",
			"message": err.Error(),
			"task":    status,
		})
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: "quick_search_timeout", Err: err})
	case errors.Is(err, context.Canceled):
		h.logger().DebugContext(r.Context(), "quick search abandoned by client")
	default:
		writeServiceError(w, r, h.logger(), err)
	}
}

// PublicOverview returns the public analytics sections.
// GET /api/overview.
func (h *SearchHandlers) PublicOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.Overview.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
