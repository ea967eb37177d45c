package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/media-console/config"
)

const redisPingTimeout = 5 * time.Second

// ConnectRedis creates a Redis client for the configured topology and verifies it with a ping.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		client redis.UniversalClient
		err    error
		mode   string
		addr   string
	)
	if cfg.UseSentinel {
		client = newSentinelClient(cfg)
		mode = "sentinel"
		addr = strings.Join(normalizeAddrs(cfg.SentinelNodes), ",")
	} else {
		client, err = newDirectClient(cfg)
		if err != nil {
			return nil, err
		}
		mode = "direct"
		addr = redactURI(cfg.URI)
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis (%s): %w", mode, err)
	}

	logger.InfoContext(ctx, "connected to redis", "mode", mode, "addr", addr)
	return client, nil
}

func newSentinelClient(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    normalizeAddrs(cfg.SentinelNodes),
		SentinelPassword: cfg.SentinelPassword,
		Password:         cfg.Password,
		DB:               cfg.DB,
	})
}

func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	if isRedisURL(cfg.URI) {
		opts, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse redis uri: %w", err)
		}
		if cfg.Password != "" && opts.Password == "" {
			opts.Password = cfg.Password
		}
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.URI),
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

func normalizeAddrs(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func isRedisURL(uri string) bool {
	uri = strings.TrimSpace(uri)
	return strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://")
}

// redactURI strips credentials so the address is safe to log.
func redactURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if !isRedisURL(uri) {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "redis://<invalid>"
	}
	return u.Redacted()
}
