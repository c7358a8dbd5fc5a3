package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	authsync "github.com/goliatone/go-authsync"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a cached document is served before the
// backing store is read again.
const DefaultCacheTTL = 5 * time.Minute

// CachedStore wraps a DocumentStore with a Redis read-through cache. Writes
// go to the backing store first and then evict the cached copy. Redis
// failures are logged and bypassed, they never fail a call.
type CachedStore struct {
	next   authsync.DocumentStore
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger authsync.Logger

	warnedUnavailable atomic.Bool
}

var _ authsync.DocumentStore = (*CachedStore)(nil)

func NewCachedStore(next authsync.DocumentStore, client redis.Cmdable) *CachedStore {
	return &CachedStore{
		next:   next,
		client: client,
		ttl:    DefaultCacheTTL,
		prefix: "authsync:doc:",
		logger: authsync.NopLogger(),
	}
}

func (c *CachedStore) WithTTL(ttl time.Duration) *CachedStore {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

func (c *CachedStore) WithPrefix(prefix string) *CachedStore {
	c.prefix = prefix
	return c
}

func (c *CachedStore) WithLogger(l authsync.Logger) *CachedStore {
	if l != nil {
		c.logger = l
	}
	return c
}

// Key returns the cache key for a document.
func (c *CachedStore) Key(collection, id string) string {
	return c.prefix + collection + "/" + id
}

func (c *CachedStore) Get(ctx context.Context, collection, id string) (authsync.Document, error) {
	key := c.Key(collection, id)

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			doc := authsync.Document{}
			if err := json.Unmarshal(raw, &doc); err == nil {
				return doc, nil
			}
			c.logger.Warn("cache entry corrupted, evicting", "key", key)
			c.evict(ctx, key)
		case errors.Is(err, redis.Nil):
		default:
			c.warnUnavailableOnce(err)
		}
	}

	doc, err := c.next.Get(ctx, collection, id)
	if err != nil || doc == nil {
		return doc, err
	}

	if c.client != nil {
		if raw, err := json.Marshal(doc); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.warnUnavailableOnce(err)
			}
		}
	}

	return doc, nil
}

func (c *CachedStore) Set(ctx context.Context, collection, id string, doc authsync.Document) error {
	if err := c.next.Set(ctx, collection, id, doc); err != nil {
		return err
	}
	c.evict(ctx, c.Key(collection, id))
	return nil
}

func (c *CachedStore) Create(ctx context.Context, collection, id string, doc authsync.Document) (bool, error) {
	created, err := c.next.Create(ctx, collection, id, doc)
	if err != nil {
		return false, err
	}
	if created {
		c.evict(ctx, c.Key(collection, id))
	}
	return created, nil
}

func (c *CachedStore) Update(ctx context.Context, collection, id string, fields authsync.Document) error {
	if err := c.next.Update(ctx, collection, id, fields); err != nil {
		return err
	}
	c.evict(ctx, c.Key(collection, id))
	return nil
}

func (c *CachedStore) evict(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.warnUnavailableOnce(err)
	}
}

func (c *CachedStore) warnUnavailableOnce(err error) {
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		c.logger.Warn("redis unavailable, bypassing cache", "error", err)
	}
}
