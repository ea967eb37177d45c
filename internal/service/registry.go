package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/observability/metrics"
	"github.com/target/media-console/internal/ports"
)

const defaultIdleTTL = 30 * time.Minute

// TokenSource returns the durable token storage scoped to sid.
type TokenSource func(sid string) ports.TokenStore

// SessionFactory builds a fresh SessionStore for sid. reloader must be wired into the store.
type SessionFactory func(sid string, reloader ports.Reloader) *SessionStore

// RegistryOptions groups dependencies for Registry.
type RegistryOptions struct {
	IdleTTL  time.Duration
	NewStore SessionFactory
	// Tokens is required by Rotate.
	Tokens TokenSource
	// Flushers drop per-session cached data whenever a session reloads.
	Flushers []func(sid string)
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Registry holds one live SessionStore per browser session id.
// Idle stores are evicted; durable state in the token store survives eviction.
type Registry struct {
	mu       sync.Mutex
	stores   *gocache.Cache
	newStore SessionFactory
	tokens   TokenSource
	flushers []func(sid string)
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRegistry constructs a Registry.
func NewRegistry(opts RegistryOptions) *Registry {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		stores:   gocache.New(ttl, time.Minute),
		newStore: opts.NewStore,
		tokens:   opts.Tokens,
		flushers: opts.Flushers,
		logger:   logger.With("component", "session_registry"),
		metrics:  opts.Metrics,
	}
	r.stores.OnEvicted(func(string, any) { r.metrics.SessionClosed() })
	return r
}

// Get returns the live store for sid, creating and starting one when absent.
// Each call pushes the idle deadline forward.
func (r *Registry) Get(ctx context.Context, sid string) *SessionStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.stores.Get(sid); ok {
		store := v.(*SessionStore)
		r.stores.SetDefault(sid, store)
		return store
	}
	return r.createLocked(ctx, sid)
}

func (r *Registry) createLocked(ctx context.Context, sid string) *SessionStore {
	store := r.newStore(sid, ports.ReloadFunc(func(ctx context.Context) { r.Reload(ctx, sid) }))
	// An expired entry may still be present until the janitor runs.
	r.stores.Delete(sid)
	r.stores.SetDefault(sid, store)
	r.metrics.SessionOpened()
	store.Start(ctx)
	return store
}

// Reload discards the live store for sid and its cached data, then starts a
// fresh store that re-verifies from durable storage.
func (r *Registry) Reload(ctx context.Context, sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stores.Delete(sid)
	for _, flush := range r.flushers {
		flush(sid)
	}
	r.createLocked(ctx, sid)
	r.logger.DebugContext(ctx, "session reloaded", "sid_prefix", shortID(sid))
}

// Drop discards the live store for sid without rebuilding it.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(sid)
}

func (r *Registry) dropLocked(sid string) {
	r.stores.Delete(sid)
	for _, flush := range r.flushers {
		flush(sid)
	}
}

// sessionKeys are the durable keys that follow a session across rotation.
var sessionKeys = []string{domainauth.KeyAccessToken, domainauth.KeyOriginalToken}

// Rotate moves the durable tokens held under sid to a newly issued id and
// discards the live store and cached data of the old one. The new store is
// built lazily on the next request. On failure the new id is abandoned and the
// old one is still dropped.
func (r *Registry) Rotate(ctx context.Context, sid string) (string, error) {
	if r.tokens == nil {
		return "", errors.New("session registry has no token source")
	}
	next := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	from, to := r.tokens(sid), r.tokens(next)
	err := moveTokens(ctx, from, to)
	if err != nil {
		err = errors.Join(err, to.Delete(ctx, sessionKeys...))
	}
	if delErr := from.Delete(ctx, sessionKeys...); delErr != nil {
		err = errors.Join(err, delErr)
	}
	r.dropLocked(sid)
	if err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}

	r.logger.DebugContext(ctx, "session rotated", "sid_prefix", shortID(sid), "new_sid_prefix", shortID(next))
	return next, nil
}

func moveTokens(ctx context.Context, from, to ports.TokenStore) error {
	for _, key := range sessionKeys {
		v, err := from.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if v == "" {
			continue
		}
		if err := to.Set(ctx, key, v); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return nil
}

// Len reports how many unexpired stores are live. Expired entries the janitor
// has not swept yet are not counted.
func (r *Registry) Len() int {
	return len(r.stores.Items())
}

func shortID(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
