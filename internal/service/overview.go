package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/target/media-console/internal/ports"
	"golang.org/x/sync/errgroup"
)

// OverviewSections are the public analytics endpoints combined into the overview.
//
//nolint:gochecknoglobals // fixed list of public endpoints
var OverviewSections = []string{"overview", "top-brands", "trends"}

const overviewCacheKey = "overview"

// OverviewServiceOptions groups dependencies for OverviewService.
type OverviewServiceOptions struct {
	API      ports.PublicAPI
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// OverviewService aggregates the public analytics endpoints.
type OverviewService struct {
	api    ports.PublicAPI
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewOverviewService constructs an OverviewService.
func NewOverviewService(opts OverviewServiceOptions) *OverviewService {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultQueryCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OverviewService{
		api:    opts.API,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger.With("component", "overview"),
	}
}

// Overview fetches every section concurrently. Any failing section fails the whole call.
func (s *OverviewService) Overview(ctx context.Context) (map[string]json.RawMessage, error) {
	if v, ok := s.cache.Get(overviewCacheKey); ok {
		return v.(map[string]json.RawMessage), nil
	}

	var mu sync.Mutex
	out := make(map[string]json.RawMessage, len(OverviewSections))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range OverviewSections {
		g.Go(func() error {
			body, err := s.api.Public(gctx, name)
			if err != nil {
				return upstreamError(err, "fetch "+name)
			}
			mu.Lock()
			out[name] = body
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "overview fetch failed", "error", err)
		return nil, err
	}

	s.cache.SetDefault(overviewCacheKey, out)
	return out, nil
}
