package constituents

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

// Cache memoizes a Source by (url, index). Entries expire after ttl; a
// non-positive ttl keeps them until Invalidate. Cached tables are shared
// between callers and must not be modified.
type Cache struct {
	source Source
	items  *cache.Cache
	group  singleflight.Group
	logger *zap.Logger
}

func NewCache(source Source, ttl time.Duration, logger *zap.Logger) *Cache {
	expiration := ttl
	cleanup := 2 * ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &Cache{
		source: source,
		items:  cache.New(expiration, cleanup),
		logger: logger,
	}
}

var _ Source = (*Cache)(nil)

// Key creates the composite memo key.
func Key(url string, index int) string {
	return url + "#" + strconv.Itoa(index)
}

// Load returns the memoized table or loads it once, even under concurrent
// misses. The shared load does not stop when one caller gives up; each
// caller only stops waiting for it. Errors are not cached.
func (c *Cache) Load(ctx context.Context, url string, index int) (*table.Table, error) {
	key := Key(url, index)
	if v, ok := c.items.Get(key); ok {
		return v.(*table.Table), nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		t, err := c.source.Load(loadCtx, url, index)
		if err != nil {
			return nil, err
		}
		c.items.Set(key, t, cache.DefaultExpiration)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c.logger.Debug("constituents loaded", zap.String("key", key), zap.Bool("shared", res.Shared))
		return res.Val.(*table.Table), nil
	}
}

// Cached returns how many tables are memoized. Expired entries count until
// the janitor removes them.
func (c *Cache) Cached() int {
	return c.items.ItemCount()
}

// Invalidate drops every memoized table and returns how many were dropped.
func (c *Cache) Invalidate() int {
	n := c.items.ItemCount()
	c.items.Flush()
	return n
}
