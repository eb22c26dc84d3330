package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, "cs509")
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, AirportsKey("team"))
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, AirportsKey("team"), []byte("<Airports/>"), time.Minute))
	assert.True(t, mr.Exists("cs509:airports:team"))

	data, err := c.Get(ctx, AirportsKey("team"))
	require.NoError(t, err)
	assert.Equal(t, "<Airports/>", string(data))

	require.NoError(t, c.Delete(ctx, AirportsKey("team")))
	_, err = c.Get(ctx, AirportsKey("team"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, AirplanesKey("team"), []byte("x"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, AirplanesKey("team"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_ClearOnlyTouchesPrefix(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, c.Set(ctx, AirportsKey("a"), []byte("1"), 0))
	require.NoError(t, c.Set(ctx, AirplanesKey("a"), []byte("2"), 0))

	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists("cs509:airports:a"))
	assert.False(t, mr.Exists("cs509:airplanes:a"))
	assert.True(t, mr.Exists("other:key"))
}

func TestGetOrFetch(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("<Airplanes/>"), nil
	}

	data, err := GetOrFetch(ctx, c, AirplanesKey("team"), ShortTTL, fetch)
	require.NoError(t, err)
	assert.Equal(t, "<Airplanes/>", string(data))

	data, err = GetOrFetch(ctx, c, AirplanesKey("team"), ShortTTL, fetch)
	require.NoError(t, err)
	assert.Equal(t, "<Airplanes/>", string(data))
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_FetchErrorNotCached(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := GetOrFetch(ctx, c, AirportsKey("team"), ShortTTL, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, AirportsKey("team"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetOrFetch_CacheDownStillFetches(t *testing.T) {
	mr, c := setupTestCache(t)
	mr.Close()

	data, err := GetOrFetch(context.Background(), c, AirportsKey("team"), ShortTTL, func() ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestGetOrFetch_NilCache(t *testing.T) {
	data, err := GetOrFetch(context.Background(), nil, "k", ShortTTL, func() ([]byte, error) {
		return []byte("direct"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", string(data))
}
