package service

import (
	"context"
	"errors"
	"time"

	"github.com/target/media-console/internal/observability/metrics"
)

// PollFunc inspects remote state once. It returns done=true to stop polling.
type PollFunc func(ctx context.Context) (done bool, err error)

// Poll calls check immediately and then once per interval until check reports done,
// check fails, or ctx is cancelled. The ticker is released on every exit path.
func Poll(ctx context.Context, interval time.Duration, check PollFunc) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollResult maps a Poll outcome to a metric label.
func pollResult(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return metrics.ResultError
	}
}
