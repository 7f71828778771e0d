package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/cache"
	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/record"
)

const summaryKey = "recebe:v1:summary"

// Cached keeps fetched runs for a short TTL so that rendering the same run
// twice in a row does not hit the service twice. It does not merge concurrent
// requests. Cached runs are replaced wholesale, never patched.
type Cached struct {
	inner  Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	listKeys map[string]struct{}
}

// NewCached decorates inner. A nil cache disables caching.
func NewCached(inner Repository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		inner:    inner,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
		listKeys: make(map[string]struct{}),
	}
}

// Create creates the run and drops every cached listing, so the next List
// reloads from the source.
func (c *Cached) Create(ctx context.Context, req CreateRequest) (string, error) {
	id, err := c.inner.Create(ctx, req)
	if err != nil {
		return "", err
	}
	c.invalidateLists()
	return id, nil
}

// Get returns the cached run when it is younger than the TTL
func (c *Cached) Get(ctx context.Context, id string) (*model.Run, error) {
	if c.cache != nil {
		if data, ok := c.cache.Get(cache.RunKey(id)); ok {
			if run, err := record.ParseRun(data); err == nil {
				c.logger.Debug("run cache hit", zap.String("run_id", id))
				return run, nil
			}
			_ = c.cache.Delete(cache.RunKey(id))
		}
	}
	return c.Refresh(ctx, id)
}

// Refresh fetches the run from the source and replaces the cached copy
func (c *Cached) Refresh(ctx context.Context, id string) (*model.Run, error) {
	run, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if data, err := record.Encode(run); err == nil {
			c.store(cache.RunKey(id), data)
		}
	}
	return run, nil
}

// List returns a cached page when the same query was made within the TTL
func (c *Cached) List(ctx context.Context, q Query) (*model.RunPage, error) {
	key := cache.ListKey("list", string(q.Status), q.Cursor, strconv.Itoa(q.Limit))
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			if page, err := record.ParseRunPage(data); err == nil {
				return page, nil
			}
		}
	}

	page, err := c.inner.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if data, err := json.Marshal(page); err == nil {
			c.store(key, data)
			c.trackList(key)
		}
	}
	return page, nil
}

// Summary returns cached counts, dropped together with listings
func (c *Cached) Summary(ctx context.Context) (*model.Summary, error) {
	if c.cache != nil {
		if data, ok := c.cache.Get(summaryKey); ok {
			var s model.Summary
			if err := json.Unmarshal(data, &s); err == nil {
				return &s, nil
			}
		}
	}

	s, err := c.inner.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if data, err := json.Marshal(s); err == nil {
			c.store(summaryKey, data)
			c.trackList(summaryKey)
		}
	}
	return s, nil
}

// Download always goes to the source
func (c *Cached) Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error) {
	return c.inner.Download(ctx, id, format)
}

func (c *Cached) store(key string, data []byte) {
	if err := c.cache.Set(key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cached) trackList(key string) {
	c.mu.Lock()
	c.listKeys[key] = struct{}{}
	c.mu.Unlock()
}

func (c *Cached) invalidateLists() {
	if c.cache == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.listKeys {
		_ = c.cache.Delete(key)
	}
	c.listKeys = make(map[string]struct{})
}
