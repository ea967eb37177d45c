package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/media-console/internal/domain/model"
	apperrors "github.com/target/media-console/internal/errors"
	"github.com/target/media-console/internal/observability/metrics"
	"github.com/target/media-console/internal/ports"
)

// DefaultQuickSearchInterval is how often task status is polled.
const DefaultQuickSearchInterval = 500 * time.Millisecond

// ErrQuickSearchFailed is returned when the server reports the task as failed.
var ErrQuickSearchFailed = errors.New("quick search failed")

// QuickSearchServiceOptions groups dependencies for QuickSearchService.
type QuickSearchServiceOptions struct {
	API      ports.QuickSearchAPI
	Interval time.Duration
	// Timeout bounds a whole run; zero means only the caller's context applies.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// QuickSearchService runs fire-and-poll searches.
type QuickSearchService struct {
	api      ports.QuickSearchAPI
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewQuickSearchService constructs a QuickSearchService.
func NewQuickSearchService(opts QuickSearchServiceOptions) *QuickSearchService {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultQuickSearchInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QuickSearchService{
		api:      opts.API,
		interval: interval,
		timeout:  opts.Timeout,
		logger:   logger.With("component", "quick_search"),
		metrics:  opts.Metrics,
	}
}

// Run starts a search and polls until it completes or fails. progress, when non-nil,
// receives every status observed. Cancelling ctx stops polling.
func (s *QuickSearchService) Run(ctx context.Context, token string, req json.RawMessage, progress func(model.TaskStatus)) (model.TaskStatus, error) {
	if len(req) == 0 || !json.Valid(req) {
		return model.TaskStatus{}, apperrors.Validation("search request must be a JSON document")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	taskID, err := s.api.StartQuickSearch(ctx, token, req)
	if err != nil {
		return model.TaskStatus{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "start quick search")
	}

	start := time.Now()
	var last model.TaskStatus
	err = Poll(ctx, s.interval, func(ctx context.Context) (bool, error) {
		st, err := s.api.QuickSearchStatus(ctx, token, taskID)
		if err != nil {
			return false, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "quick search status")
		}
		last = st
		if progress != nil {
			progress(st)
		}
		return st.Status.Terminal(), nil
	})
	s.metrics.Poll(pollResult(err), time.Since(start))
	if err != nil {
		s.logger.InfoContext(ctx, "quick search polling stopped", "task_id", taskID, "error", err)
		return last, err
	}

	if last.Status == model.TaskFailed {
		msg := last.Error
		if msg == "" {
			msg = last.Message
		}
		return last, fmt.Errorf("%w: %s", ErrQuickSearchFailed, msg)
	}
	return last, nil
}
