package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/target/media-console/internal/domain/model"
	"github.com/target/media-console/internal/ports"
)

const (
	pathQuickSearchStart  = "/api/v1/quick-search/execute-async"
	pathQuickSearchStatus = "/api/v1/quick-search/status/"
)

var _ ports.QuickSearchAPI = (*Client)(nil)

// StartQuickSearch submits a search and returns the server task id.
func (c *Client) StartQuickSearch(ctx context.Context, token string, req json.RawMessage) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: pathQuickSearchStart, token: token, body: req}, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", errors.New("quick search response missing task_id")
	}
	return out.TaskID, nil
}

// QuickSearchStatus fetches the current status of a search task.
func (c *Client) QuickSearchStatus(ctx context.Context, token, taskID string) (model.TaskStatus, error) {
	var st model.TaskStatus
	path := pathQuickSearchStatus + url.PathEscape(taskID)
	if err := c.do(ctx, request{method: http.MethodGet, path: path, token: token}, &st); err != nil {
		return model.TaskStatus{}, err
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	return st, nil
}
