package ports

// Package ports defines interfaces (hexagonal ports) for session and API behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/media-console/internal/domain/auth"
)

// TokenStore is durable storage for bearer tokens.
// Get returns "" with a nil error when the key is absent.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// SignupInput carries the fields required to provision a tenant and its first admin.
type SignupInput struct {
	Email      string
	Password   string
	TenantName string
}

// AuthAPI is the subset of the external API that backs the session lifecycle.
type AuthAPI interface {
	// PasswordToken exchanges credentials for a bearer token.
	PasswordToken(ctx context.Context, email, password string) (string, error)

	// Signup creates a tenant plus admin identity and returns its bearer token.
	Signup(ctx context.Context, in SignupInput) (string, error)

	// Me verifies token and returns the identity it belongs to.
	Me(ctx context.Context, token string) (domainauth.Identity, error)

	// Logout notifies the API that token is being discarded.
	Logout(ctx context.Context, token string) error
}

// Reloader restarts the consumer from durable state after a token swap.
type Reloader interface {
	Reload(ctx context.Context)
}

// ReloadFunc adapts a function to the Reloader interface.
type ReloadFunc func(ctx context.Context)

// Reload calls f(ctx).
func (f ReloadFunc) Reload(ctx context.Context) {
	if f != nil {
		f(ctx)
	}
}
