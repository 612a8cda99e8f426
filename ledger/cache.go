package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"ytinsight/storage"
)

const (
	// DefaultTTL is how long a cached fetch result stays valid.
	DefaultTTL = time.Hour
	// DefaultMemoryEntries bounds the in-process tier.
	DefaultMemoryEntries = 256

	cachePrefix = "cache:"
)

// CacheStats receives hit and miss notifications.
type CacheStats interface {
	CacheHit()
	CacheMiss()
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	TTL time.Duration
	// MemoryEntries sizes the in-process LRU. Negative disables it.
	MemoryEntries int
	Now           func() time.Time
	Stats         CacheStats
}

// record is the persisted form of a cache entry.
type record struct {
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache is a TTL memo of fetch results: an in-process LRU in front of a durable
// store. An entry is valid only while now-StoredAt < TTL; expired entries are
// evicted from both tiers on read.
//
// The cache is advisory. Store failures are logged and behave as misses.
type Cache struct {
	store storage.Store
	mem   *lru.Cache[string, record]
	ttl   time.Duration
	now   func() time.Time
	stats CacheStats
}

// NewCache creates a Cache backed by store.
func NewCache(store storage.Store, opts CacheOptions) *Cache {
	c := &Cache{
		store: store,
		ttl:   opts.TTL,
		now:   opts.Now,
		stats: opts.Stats,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}

	size := opts.MemoryEntries
	if size == 0 {
		size = DefaultMemoryEntries
	}
	if size > 0 {
		mem, err := lru.New[string, record](size)
		if err == nil {
			c.mem = mem
		}
	}
	return c
}

// Get returns the value stored under key when it is still fresh.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	rec, ok := c.lookup(ctx, key)
	if !ok {
		c.miss()
		return nil, false
	}
	if !c.fresh(rec) {
		c.evict(ctx, key)
		c.miss()
		return nil, false
	}
	c.hit()
	out := make([]byte, len(rec.Value))
	copy(out, rec.Value)
	return out, true
}

// Put stores value under key, stamped with the current time.
func (c *Cache) Put(ctx context.Context, key string, value []byte) {
	rec := record{Value: append([]byte(nil), value...), StoredAt: c.now()}
	if c.mem != nil {
		c.mem.Add(key, rec)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, cachePrefix+key, raw); err != nil {
		log.Warn().Str("component", "cache").Str("key", key).Err(err).Msg("cache write failed")
	}
}

// GetJSON decodes a fresh entry into v.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Warn().Str("component", "cache").Str("key", key).Err(err).Msg("discarding undecodable cache entry")
		c.evict(ctx, key)
		return false
	}
	return true
}

// PutJSON encodes v and stores it under key.
func (c *Cache) PutJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Str("component", "cache").Str("key", key).Err(err).Msg("cache value not encodable")
		return
	}
	c.Put(ctx, key, raw)
}

func (c *Cache) lookup(ctx context.Context, key string) (record, bool) {
	if c.mem != nil {
		if rec, ok := c.mem.Get(key); ok {
			return rec, true
		}
	}

	raw, err := c.store.Get(ctx, cachePrefix+key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Str("component", "cache").Str("key", key).Err(err).Msg("cache read failed")
		}
		return record{}, false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.evict(ctx, key)
		return record{}, false
	}
	if c.mem != nil && c.fresh(rec) {
		c.mem.Add(key, rec)
	}
	return rec, true
}

func (c *Cache) fresh(rec record) bool {
	return c.now().Sub(rec.StoredAt) < c.ttl
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.mem != nil {
		c.mem.Remove(key)
	}
	if err := c.store.Delete(ctx, cachePrefix+key); err != nil {
		log.Debug().Str("component", "cache").Str("key", key).Err(err).Msg("cache evict failed")
	}
}

func (c *Cache) hit() {
	if c.stats != nil {
		c.stats.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.stats != nil {
		c.stats.CacheMiss()
	}
}
