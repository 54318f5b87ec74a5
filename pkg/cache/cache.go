package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gridpreview/pkg/config"
	"gridpreview/pkg/logger"
)

// ErrMiss is returned by Get when the image is not cached
var ErrMiss = errors.New("cache miss")

// Entry is a cached image body
type Entry struct {
	Data        []byte
	ContentType string
}

// ImageCache stores proxied image bodies keyed by their source URL
type ImageCache interface {
	Get(ctx context.Context, url string) (*Entry, error)
	Set(ctx context.Context, url string, entry *Entry) error
	Delete(ctx context.Context, url string) error
	Close() error
}

// Key returns the storage key for an image URL
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// New builds the cache selected by cfg.Backend
func New(cfg config.CacheConfig, log logger.Logger) (ImageCache, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		client, err := NewRedisConnection(cfg)
		if err != nil {
			return nil, err
		}
		log.InfoWithFields("Connected to redis image cache", map[string]interface{}{
			"addr": cfg.RedisAddr,
			"db":   cfg.RedisDB,
		})
		return NewRedisCache(client, cfg.KeyPrefix, cfg.TTL), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Nop caches nothing
type Nop struct{}

func (Nop) Get(ctx context.Context, url string) (*Entry, error)     { return nil, ErrMiss }
func (Nop) Set(ctx context.Context, url string, entry *Entry) error { return nil }
func (Nop) Delete(ctx context.Context, url string) error            { return nil }
func (Nop) Close() error                                            { return nil }
