package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(rc, nil)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestSetJSONAndGetBytes(t *testing.T) {
	c, _ := newTestCache(t)

	c.SetJSON(KeyPostsList, map[string]string{"message": "success"}, time.Minute)

	b, ok := c.GetBytes(KeyPostsList)
	require.True(t, ok)
	assert.Contains(t, string(b), "success")

	_, ok = c.GetBytes("missing")
	assert.False(t, ok)
}

func TestInvalidateByPrefix(t *testing.T) {
	c, mr := newTestCache(t)

	c.SetJSON(KeyPostDetail+"abc", "one", time.Minute)
	c.SetJSON(KeyPostDetail+"def", "two", time.Minute)
	c.SetJSON(KeyUserPosts+"alice", "three", time.Minute)

	c.InvalidateByPrefix(KeyPostDetail)

	assert.False(t, mr.Exists(KeyPostDetail+"abc"))
	assert.False(t, mr.Exists(KeyPostDetail+"def"))
	assert.True(t, mr.Exists(KeyUserPosts+"alice"))
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache

	_, ok := c.GetBytes(KeyPostsList)
	assert.False(t, ok)
	c.SetJSON(KeyPostsList, "x", time.Minute)
	c.InvalidateByPrefix(KeyPostsList)
	assert.NoError(t, c.Close())
}
