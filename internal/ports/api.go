package ports

import (
	"context"
	"encoding/json"

	"github.com/target/media-console/internal/domain/model"
)

// ResourceAPI performs tenant-scoped CRUD against a collection of the external API.
// Items travel as raw JSON; the console renders them but never interprets them.
type ResourceAPI interface {
	List(ctx context.Context, token string, c model.Collection, q model.ListQuery) (model.ListResult, error)
	Get(ctx context.Context, token string, c model.Collection, id string) (json.RawMessage, error)
	Create(ctx context.Context, token string, c model.Collection, body json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, token string, c model.Collection, id string, body json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, token string, c model.Collection, id string) error
}

// QuickSearchAPI starts and inspects fire-and-poll search tasks.
type QuickSearchAPI interface {
	StartQuickSearch(ctx context.Context, token string, req json.RawMessage) (string, error)
	QuickSearchStatus(ctx context.Context, token, taskID string) (model.TaskStatus, error)
}

// AccountAPI covers the caller's own profile plus the admin impersonation grant.
type AccountAPI interface {
	Profile(ctx context.Context, token string) (json.RawMessage, error)
	UpdateProfile(ctx context.Context, token string, body json.RawMessage) (json.RawMessage, error)
	ChangePassword(ctx context.Context, token, current, next string) error
	Impersonate(ctx context.Context, token, userID string) (model.ImpersonationGrant, error)
}

// PublicAPI fetches unauthenticated analytics endpoints by name (e.g. "overview").
type PublicAPI interface {
	Public(ctx context.Context, name string) (json.RawMessage, error)
}
