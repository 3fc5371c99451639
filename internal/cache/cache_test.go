package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the behaviour every backend must share.
func exercise(t *testing.T, c Cache, expire func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "qagen:key1", "value1", 0))
	val, found, err := c.Get(ctx, "qagen:key1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	val, found, err = c.Get(ctx, "qagen:missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	require.NoError(t, c.Set(ctx, "qagen:short", "temp", 500*time.Millisecond))
	expire(time.Second)
	_, found, err = c.Get(ctx, "qagen:short")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "qagen:gone", "x", 0))
	require.NoError(t, c.Delete(ctx, "qagen:gone"))
	_, found, err = c.Get(ctx, "qagen:gone")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, c.Delete(ctx, "qagen:never-set"))

	require.NoError(t, c.Set(ctx, "qagen:key2", "value2", 0))
	require.NoError(t, c.Clear(ctx))
	_, found, err = c.Get(ctx, "qagen:key2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(Config{DefaultTTL: time.Minute, CleanupInterval: time.Second})
	exercise(t, c, time.Sleep)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), Config{
		RedisAddr:  mr.Addr(),
		KeyPrefix:  "qagen",
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	exercise(t, c, mr.FastForward)
}

func TestRedisCache_ClearKeepsForeignKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	c, err := NewRedisCache(context.Background(), Config{RedisAddr: mr.Addr(), KeyPrefix: "qagen"})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	for _, k := range []string{"a", "b", Key("chunk", "text")} {
		require.NoError(t, c.Set(ctx, k, "v", 0))
	}
	assert.True(t, mr.Exists("qagen:a"))
	assert.True(t, mr.Exists("qagen:"+Key("chunk", "text")))
	require.NoError(t, c.Clear(ctx))

	assert.True(t, mr.Exists("other:key"))
	assert.False(t, mr.Exists("qagen:a"))
	assert.False(t, mr.Exists("qagen:"+Key("chunk", "text")))
}

func TestRedisCache_DefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), Config{RedisAddr: mr.Addr(), DefaultTTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, time.Hour, mr.TTL("k"))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), Config{RedisAddr: addr})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(ctx, Config{Type: TypeNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = New(ctx, Config{Type: "memcached"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	k1 := Key("qagen", "ab", "c")
	k2 := Key("qagen", "a", "bc")
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, k1, Key("qagen:", "ab", "c"))
	assert.Regexp(t, `^qagen:[0-9a-f]{64}$`, k1)
	assert.Len(t, Key("", "x"), 64)
}
