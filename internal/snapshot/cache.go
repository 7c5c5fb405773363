package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/metric"

	"github.com/zulandar/cockpit/internal/telemetry"
	"github.com/zulandar/cockpit/internal/view"
)

// DefaultCacheSize bounds the number of users cached at once.
const DefaultCacheSize = 256

var (
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	metricsOnce sync.Once
)

func initMetrics() {
	m := telemetry.Meter(scope)
	cacheHits, _ = m.Int64Counter("cockpit.cache.hits",
		metric.WithDescription("Snapshot reads served from the cache"),
	)
	cacheMisses, _ = m.Int64Counter("cockpit.cache.misses",
		metric.WithDescription("Snapshot reads that required a build"),
	)
}

// Cache holds one snapshot per user until its TTL expires or the entry is
// invalidated. A non-positive TTL disables caching. Cached snapshots are
// shared between readers and must not be mutated.
type Cache struct {
	ttl     time.Duration
	entries *expirable.LRU[int64, *view.Snapshot]
}

// NewCache returns a cache holding up to size users for ttl.
func NewCache(size int, ttl time.Duration) *Cache {
	metricsOnce.Do(initMetrics)
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &Cache{ttl: ttl}
	if ttl > 0 {
		c.entries = expirable.NewLRU[int64, *view.Snapshot](size, nil, ttl)
	}
	return c
}

// Get returns the user's cached snapshot.
func (c *Cache) Get(ctx context.Context, userID int64) (*view.Snapshot, bool) {
	if c.entries == nil {
		cacheMisses.Add(ctx, 1)
		return nil, false
	}
	snap, ok := c.entries.Get(userID)
	if ok {
		cacheHits.Add(ctx, 1)
	} else {
		cacheMisses.Add(ctx, 1)
	}
	return snap, ok
}

// Put stores snap for the user.
func (c *Cache) Put(userID int64, snap *view.Snapshot) {
	if c.entries == nil || snap == nil {
		return
	}
	c.entries.Add(userID, snap)
}

// Invalidate drops the user's entry.
func (c *Cache) Invalidate(userID int64) {
	if c.entries == nil {
		return
	}
	c.entries.Remove(userID)
}

// Len reports how many users are cached.
func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Service serves snapshots through the cache, building on a miss.
// Concurrent misses for one user each build independently.
type Service struct {
	builder *Builder
	cache   *Cache
}

// NewService pairs a builder with a cache.
func NewService(builder *Builder, cache *Cache) *Service {
	return &Service{builder: builder, cache: cache}
}

// Builder returns the underlying builder.
func (s *Service) Builder() *Builder { return s.builder }

// Get returns the user's snapshot, cached or freshly built.
func (s *Service) Get(ctx context.Context, userID int64) (*view.Snapshot, error) {
	if snap, ok := s.cache.Get(ctx, userID); ok {
		return snap, nil
	}
	snap, err := s.builder.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Put(userID, snap)
	return snap, nil
}

// Invalidate drops the user's cached snapshot.
func (s *Service) Invalidate(userID int64) {
	s.cache.Invalidate(userID)
}
