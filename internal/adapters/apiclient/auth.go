package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/ports"
	"golang.org/x/oauth2"
)

const (
	pathToken   = "/api/v1/auth/token"
	pathSignup  = "/api/v1/auth/signup"
	pathMe      = "/api/v1/auth/me"
	pathLogout  = "/api/v1/auth/logout"
	pathProfile = "/api/v1/auth/profile"
	pathChange  = "/api/v1/auth/change-password"
)

var _ ports.AuthAPI = (*Client)(nil)

// tokenResponse is the body returned by signup.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// PasswordToken exchanges email and password for a bearer token using the
// OAuth2 resource owner password grant (form-encoded).
func (c *Client) PasswordToken(ctx context.Context, email, password string) (string, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + pathToken,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient(""))

	tok, err := conf.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := http.StatusBadRequest
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			apiErr := c.messages.apiError(status, re.Body)
			if apiErr.Message == "" {
				apiErr.Message = re.ErrorDescription
			}
			return "", apiErr
		}
		return "", fmt.Errorf("token exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// Signup provisions a new tenant with an admin identity and returns its token.
func (c *Client) Signup(ctx context.Context, in ports.SignupInput) (string, error) {
	payload := map[string]string{
		"email":       in.Email,
		"password":    in.Password,
		"tenant_name": in.TenantName,
	}
	var out tokenResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: pathSignup, body: payload}, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("signup response missing access_token")
	}
	return out.AccessToken, nil
}

// Me verifies token and returns the identity it belongs to.
func (c *Client) Me(ctx context.Context, token string) (domainauth.Identity, error) {
	var id domainauth.Identity
	if err := c.do(ctx, request{method: http.MethodGet, path: pathMe, token: token}, &id); err != nil {
		return domainauth.Identity{}, err
	}
	if id.ID == "" {
		return domainauth.Identity{}, errors.New("identity response missing id")
	}
	return id, nil
}

// Logout notifies the API that token is being discarded.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodPost, path: pathLogout, token: token}, nil)
}
