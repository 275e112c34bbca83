// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})
	return c, mr
}

func TestRedisCacheSetGet(t *testing.T) {
	c, _ := newTestRedisCache(t)

	c.Set("enzyme:1.1.1.1", testRecords, time.Minute)

	got, found := c.Get("enzyme:1.1.1.1")
	require.True(t, found)
	assert.Equal(t, testRecords, got)
}

func TestRedisCacheMiss(t *testing.T) {
	c, _ := newTestRedisCache(t)

	_, found := c.Get("missing")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCacheExpiration(t *testing.T) {
	c, mr := newTestRedisCache(t)

	c.Set("k", testRecords, time.Second)
	mr.FastForward(2 * time.Second)

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := newTestRedisCache(t)

	c.Set("k", testRecords, time.Minute)
	c.Delete("k")

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestRedisCacheClear(t *testing.T) {
	c, _ := newTestRedisCache(t)

	c.Set("a", testRecords, time.Minute)
	c.Set("b", testRecords, time.Minute)
	c.Clear()

	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestRedisCacheHealthCheck(t *testing.T) {
	c, mr := newTestRedisCache(t)

	assert.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestNewRedisCacheConnectFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
