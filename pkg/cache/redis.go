package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gridpreview/pkg/config"
)

const (
	defaultDialTimeout     = 5 * time.Second
	defaultReadTimeout     = 3 * time.Second
	defaultWriteTimeout    = 3 * time.Second
	defaultPoolSize        = 10
	defaultMinIdleConns    = 2
	defaultConnMaxIdleTime = 5 * time.Minute
)

// NewRedisConnection opens a client for cfg and pings it
func NewRedisConnection(cfg config.CacheConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.RedisAddr,
		Username:        cfg.RedisUser,
		Password:        cfg.RedisPass,
		DB:              cfg.RedisDB,
		DialTimeout:     defaultDialTimeout,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		PoolSize:        defaultPoolSize,
		MinIdleConns:    defaultMinIdleConns,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisCache stores each image as one string value: the content type, a NUL
// byte, then the raw body
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, url string) (*Entry, error) {
	val, err := c.client.Get(ctx, c.prefix+Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeEntry(val)
}

func (c *RedisCache) Set(ctx context.Context, url string, entry *Entry) error {
	if entry == nil {
		return errors.New("nil cache entry")
	}
	if err := c.client.Set(ctx, c.prefix+Key(url), encodeEntry(entry), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, c.prefix+Key(url)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping checks the redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeEntry(e *Entry) []byte {
	buf := make([]byte, 0, len(e.ContentType)+1+len(e.Data))
	buf = append(buf, e.ContentType...)
	buf = append(buf, 0)
	return append(buf, e.Data...)
}

func decodeEntry(b []byte) (*Entry, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return nil, errors.New("corrupt cache entry")
	}
	return &Entry{
		ContentType: string(b[:i]),
		Data:        append([]byte(nil), b[i+1:]...),
	}, nil
}
