package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/target/media-console/internal/domain/model"
	"github.com/target/media-console/internal/ports"
)

var _ ports.ResourceAPI = (*Client)(nil)

// listEnvelope covers the paginated list shapes the API returns.
type listEnvelope struct {
	Items    []json.RawMessage `json:"items"`
	Total    *int              `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Skip     *int              `json:"skip"`
	Limit    int               `json:"limit"`
}

// List fetches one window of collection items. Page-based collections are
// translated to and from skip/limit so callers only ever see skip/limit.
func (c *Client) List(ctx context.Context, token string, col model.Collection, q model.ListQuery) (model.ListResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultLimit
	}
	skip := max(q.Skip, 0)

	query := url.Values{}
	for k, vs := range q.Filters {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	if col.Pagination == model.PaginationPage {
		pr := model.ToPage(skip, limit)
		query.Set("page", strconv.Itoa(pr.Page))
		query.Set("page_size", strconv.Itoa(pr.PageSize))
	} else {
		query.Set("skip", strconv.Itoa(skip))
		query.Set("limit", strconv.Itoa(limit))
	}

	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: col.Path + "/", token: token, query: query}, &raw); err != nil {
		return model.ListResult{}, err
	}
	return decodeList(raw, col, skip, limit)
}

func decodeList(raw json.RawMessage, col model.Collection, skip, limit int) (model.ListResult, error) {
	res := model.ListResult{Skip: skip, Limit: limit}
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &res.Items); err != nil {
			return model.ListResult{}, fmt.Errorf("decode %s list: %w", col.Name, err)
		}
		res.Total = skip + len(res.Items)
		return res, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return model.ListResult{}, fmt.Errorf("decode %s list: %w", col.Name, err)
	}
	res.Items = env.Items
	if env.Total != nil {
		res.Total = *env.Total
	} else {
		res.Total = skip + len(env.Items)
	}
	switch {
	case env.Page > 0:
		res.Skip, res.Limit = model.FromPage(env.Page, env.PageSize)
	case env.Skip != nil:
		res.Skip = *env.Skip
		if env.Limit > 0 {
			res.Limit = env.Limit
		}
	}
	if res.Items == nil {
		res.Items = []json.RawMessage{}
	}
	return res, nil
}

func itemPath(col model.Collection, id string) string {
	return col.Path + "/" + url.PathEscape(id)
}

// Get fetches a single item.
func (c *Client) Get(ctx context.Context, token string, col model.Collection, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: itemPath(col, id), token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new item and returns the API's representation of it.
func (c *Client) Create(ctx context.Context, token string, col model.Collection, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: col.Path + "/", token: token, body: body}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update patches an item and returns the updated representation.
func (c *Client) Update(ctx context.Context, token string, col model.Collection, id string, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPatch, path: itemPath(col, id), token: token, body: body}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, token string, col model.Collection, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath(col, id), token: token}, nil)
}
