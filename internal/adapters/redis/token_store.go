package redis

// Package redis provides Redis-based adapters for the media console.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/target/media-console/internal/ports"
)

const (
	defaultPrefix   = "console:"
	defaultTokenTTL = 24 * time.Hour
	minTokenTTL     = time.Second
)

// TokenStore is the Redis-backed durable storage for browser sessions.
// Keys are namespaced as <prefix><sid>:<key>.
type TokenStore struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// TokenStoreOptions configures a TokenStore.
type TokenStoreOptions struct {
	Prefix string
	// DefaultTTL applies to values that are not JWTs or carry no exp claim.
	DefaultTTL time.Duration
}

// NewTokenStore creates a Redis token store.
func NewTokenStore(client redis.UniversalClient, opts TokenStoreOptions) *TokenStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenStore{client: client, prefix: prefix, defaultTTL: ttl, now: time.Now}
}

// ForSession returns the ports.TokenStore view scoped to one browser session id.
func (s *TokenStore) ForSession(sid string) ports.TokenStore {
	return &sessionTokens{store: s, sid: sid}
}

func (s *TokenStore) key(sid, key string) string {
	return s.prefix + sid + ":" + key
}

// ttlFor derives the expiry of a stored token from its JWT exp claim.
// Signatures are not verified here; the API remains the authority on validity.
func (s *TokenStore) ttlFor(value string) time.Duration {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(value, claims); err != nil || claims.ExpiresAt == nil {
		return s.defaultTTL
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl < minTokenTTL {
		return minTokenTTL
	}
	return ttl
}

type sessionTokens struct {
	store *TokenStore
	sid   string
}

var _ ports.TokenStore = (*sessionTokens)(nil)

func (t *sessionTokens) Get(ctx context.Context, key string) (string, error) {
	if t.sid == "" {
		return "", nil
	}
	val, err := t.store.client.Get(ctx, t.store.key(t.sid, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (t *sessionTokens) Set(ctx context.Context, key, value string) error {
	if t.sid == "" {
		return errors.New("session id cannot be empty")
	}
	if value == "" {
		return t.Delete(ctx, key)
	}
	if err := t.store.client.Set(ctx, t.store.key(t.sid, key), value, t.store.ttlFor(value)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (t *sessionTokens) Delete(ctx context.Context, keys ...string) error {
	if t.sid == "" || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = t.store.key(t.sid, k)
	}
	if err := t.store.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
