package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/target/media-console/internal/domain/model"
	apperrors "github.com/target/media-console/internal/errors"
	"github.com/target/media-console/internal/observability/metrics"
	"github.com/target/media-console/internal/ports"
)

const defaultQueryCacheTTL = time.Minute

// Scope identifies whose data a call reads or writes: the browser session
// (for cache partitioning) and the bearer token used upstream.
type Scope struct {
	SID   string
	Token string
}

// ResourceServiceOptions groups dependencies for ResourceService.
type ResourceServiceOptions struct {
	API      ports.ResourceAPI
	CacheTTL time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// ResourceService serves CRUD for every registered collection.
// Reads are cached per session; successful writes invalidate the collection.
type ResourceService struct {
	api     ports.ResourceAPI
	cache   *gocache.Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewResourceService constructs a ResourceService.
func NewResourceService(opts ResourceServiceOptions) *ResourceService {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultQueryCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceService{
		api:     opts.API,
		cache:   gocache.New(ttl, 2*ttl),
		logger:  logger.With("component", "resources"),
		metrics: opts.Metrics,
	}
}

func (s *ResourceService) collection(name string) (model.Collection, error) {
	c, ok := model.LookupCollection(name)
	if !ok {
		return model.Collection{}, apperrors.NotFoundf("unknown collection %q", name)
	}
	return c, nil
}

func collectionPrefix(sid, collection string) string {
	return sid + "|" + collection + "|"
}

func listKey(sid string, c model.Collection, q model.ListQuery) string {
	var b strings.Builder
	b.WriteString(collectionPrefix(sid, c.Name))
	b.WriteString("list|")
	b.WriteString(strconv.Itoa(q.Skip))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Limit))
	b.WriteByte('|')
	b.WriteString(q.Filters.Encode())
	return b.String()
}

func itemKey(sid string, c model.Collection, id string) string {
	return collectionPrefix(sid, c.Name) + "item|" + id
}

// List returns one window of a collection.
func (s *ResourceService) List(ctx context.Context, scope Scope, name string, q model.ListQuery) (model.ListResult, error) {
	c, err := s.collection(name)
	if err != nil {
		return model.ListResult{}, err
	}
	if q.Limit <= 0 {
		q.Limit = model.DefaultLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}

	key := listKey(scope.SID, c, q)
	if v, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(c.Name, true)
		return v.(model.ListResult), nil
	}
	s.metrics.CacheLookup(c.Name, false)

	res, err := s.api.List(ctx, scope.Token, c, q)
	if err != nil {
		return model.ListResult{}, upstreamError(err, "list "+c.Name)
	}
	s.cache.SetDefault(key, res)
	return res, nil
}

// Get returns a single item.
func (s *ResourceService) Get(ctx context.Context, scope Scope, name, id string) (json.RawMessage, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.ValidationField("id", "id is required")
	}

	key := itemKey(scope.SID, c, id)
	if v, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(c.Name, true)
		return v.(json.RawMessage), nil
	}
	s.metrics.CacheLookup(c.Name, false)

	item, err := s.api.Get(ctx, scope.Token, c, id)
	if err != nil {
		return nil, upstreamError(err, fmt.Sprintf("get %s %s", c.Name, id))
	}
	s.cache.SetDefault(key, item)
	return item, nil
}

// Create adds an item and invalidates the collection.
func (s *ResourceService) Create(ctx context.Context, scope Scope, name string, body json.RawMessage) (json.RawMessage, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	item, err := s.api.Create(ctx, scope.Token, c, body)
	if err != nil {
		return nil, upstreamError(err, "create "+c.Name)
	}
	s.Invalidate(scope.SID, c.Name)
	return item, nil
}

// Update patches an item and invalidates the collection.
func (s *ResourceService) Update(ctx context.Context, scope Scope, name, id string, body json.RawMessage) (json.RawMessage, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.ValidationField("id", "id is required")
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	item, err := s.api.Update(ctx, scope.Token, c, id, body)
	if err != nil {
		return nil, upstreamError(err, fmt.Sprintf("update %s %s", c.Name, id))
	}
	s.Invalidate(scope.SID, c.Name)
	return item, nil
}

// Delete removes an item and invalidates the collection.
func (s *ResourceService) Delete(ctx context.Context, scope Scope, name, id string) error {
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	if id == "" {
		return apperrors.ValidationField("id", "id is required")
	}
	if err := s.api.Delete(ctx, scope.Token, c, id); err != nil {
		return upstreamError(err, fmt.Sprintf("delete %s %s", c.Name, id))
	}
	s.Invalidate(scope.SID, c.Name)
	return nil
}

// Invalidate drops every cached entry of one collection for one session.
func (s *ResourceService) Invalidate(sid, collection string) {
	s.deletePrefix(collectionPrefix(sid, collection))
}

// FlushSession drops every cached entry for a session.
func (s *ResourceService) FlushSession(sid string) {
	s.deletePrefix(sid + "|")
}

func (s *ResourceService) deletePrefix(prefix string) {
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

func validateBody(body json.RawMessage) error {
	if len(body) == 0 || !json.Valid(body) {
		return apperrors.Validation("request body must be a JSON document")
	}
	return nil
}
