package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// noExpiry stands in for a non-positive ttl
const noExpiry = 100 * 365 * 24 * time.Hour

// MemoryCache is a bounded in-process cache. When full, the least recently
// used entry is evicted.
type MemoryCache struct {
	lru *expirable.LRU[string, Entry]
}

// NewMemoryCache creates a cache holding at most maxEntries images for ttl.
// A non-positive ttl keeps entries until evicted.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if ttl <= 0 {
		ttl = noExpiry
	}
	return &MemoryCache{lru: expirable.NewLRU[string, Entry](maxEntries, nil, ttl)}
}

func (c *MemoryCache) Get(ctx context.Context, url string) (*Entry, error) {
	entry, ok := c.lru.Get(Key(url))
	if !ok {
		return nil, ErrMiss
	}
	entry.Data = append([]byte(nil), entry.Data...)
	return &entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, url string, entry *Entry) error {
	if entry == nil {
		return errors.New("nil cache entry")
	}
	c.lru.Add(Key(url), Entry{
		Data:        append([]byte(nil), entry.Data...),
		ContentType: entry.ContentType,
	})
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, url string) error {
	c.lru.Remove(Key(url))
	return nil
}

// Len returns the number of stored entries
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
