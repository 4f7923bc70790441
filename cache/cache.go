// Package cache is a thin read-side cache over Redis for hot post queries.
// Every method is best-effort and nil-safe: with no Redis configured (or a
// nil *Cache in tests) reads miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/perchsocial/perch/config"
)

// Default cache ttl for post lists and details.
const defaultTTL = time.Hour

// Well-known key prefixes.
const (
	KeyPostsList  = "cache:posts:list"
	KeyPostDetail = "cache:post:detail:"
	KeyUserPosts  = "cache:user:posts:"
)

type Cache struct {
	rc  *redis.Client
	log *zap.SugaredLogger
}

// New builds a Cache from config. The connection is validated with a
// best-effort ping; a dead Redis degrades to cache misses, never to errors.
func New(cfg config.AppConfig, log *zap.SugaredLogger) *Cache {
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil && log != nil {
		log.Warnf("redis unavailable, serving without cache: %v", err)
	}
	return &Cache{rc: rc, log: log}
}

// NewWithClient wraps an existing Redis client. Tests use it to back the
// cache with an in-process server.
func NewWithClient(rc *redis.Client, log *zap.SugaredLogger) *Cache {
	return &Cache{rc: rc, log: log}
}

// GetBytes returns cached bytes for a key.
func (c *Cache) GetBytes(key string) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// SetJSON marshals v and stores it with the given TTL (default applied for 0).
func (c *Cache) SetJSON(key string, v interface{}, ttl time.Duration) {
	if c == nil || c.rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil && c.log != nil {
		c.log.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix deletes keys matching the prefix using SCAN, bounded to
// a few rounds to avoid long loops.
func (c *Cache) InvalidateByPrefix(prefix string) {
	if c == nil || c.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ {
		keys, cur, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil || c.rc == nil {
		return nil
	}
	return c.rc.Close()
}
