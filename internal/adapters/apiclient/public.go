package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/target/media-console/internal/ports"
)

var _ ports.PublicAPI = (*Client)(nil)

// Public fetches an unauthenticated analytics endpoint under /api/v1/public/.
func (c *Client) Public(ctx context.Context, name string) (json.RawMessage, error) {
	var out json.RawMessage
	path := "/api/v1/public/" + url.PathEscape(name)
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
