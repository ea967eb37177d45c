package httpx

import (
	"context"

	"github.com/target/media-console/internal/service"
)

// sessionKey and sidKey are unexported context key types to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same keys.
type (
	sessionKey struct{}
	sidKey     struct{}
)

// SetSessionInContext returns a child context that carries the browser's session id and store.
// If store is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, sid string, store *service.SessionStore) context.Context {
	if store == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, sidKey{}, sid)
	return context.WithValue(ctx, sessionKey{}, store)
}

// GetSessionFromContext returns the session store and a boolean indicating presence.
func GetSessionFromContext(ctx context.Context) (*service.SessionStore, bool) {
	if store, ok := ctx.Value(sessionKey{}).(*service.SessionStore); ok && store != nil {
		return store, true
	}
	return nil, false
}

// SIDFromContext returns the browser session id, or "" outside SessionLoader.
func SIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sidKey{}).(string)
	return sid
}
