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

var _ ports.AccountAPI = (*Client)(nil)

// Profile returns the caller's own profile.
func (c *Client) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: pathProfile, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile patches the caller's own profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPatch, path: pathProfile, token: token, body: body}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword changes the caller's password.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	payload := map[string]string{
		"current_password": current,
		"new_password":     next,
	}
	return c.do(ctx, request{method: http.MethodPost, path: pathChange, token: token, body: payload}, nil)
}

// Impersonate asks the admin API for a token acting as userID.
func (c *Client) Impersonate(ctx context.Context, token, userID string) (model.ImpersonationGrant, error) {
	var grant model.ImpersonationGrant
	path := "/api/v1/users/" + url.PathEscape(userID) + "/impersonate"
	if err := c.do(ctx, request{method: http.MethodPost, path: path, token: token}, &grant); err != nil {
		return model.ImpersonationGrant{}, err
	}
	if grant.AccessToken == "" {
		return model.ImpersonationGrant{}, errors.New("impersonation response missing access_token")
	}
	if grant.User.ID == "" {
		grant.User.ID = userID
	}
	return grant, nil
}
