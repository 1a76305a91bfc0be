package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "client:x")
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "client:x", []byte(`{"id":"x"}`), 0))
	v, err := c.Get(ctx, "client:x")
	require.NoError(t, err)
	require.Equal(t, `{"id":"x"}`, string(v))

	require.NoError(t, c.Delete(ctx, "client:x"))
	_, err = c.Get(ctx, "client:x")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, c.Ping(ctx))
}

func TestMemoryClient(t *testing.T) {
	c, err := New(Config{Driver: "memory", Prefix: "hid"})
	require.NoError(t, err)
	defer c.Close()
	exercise(t, c)
}

func TestRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c, err := New(Config{Driver: "redis", Prefix: "hid", DefaultTTL: time.Minute, Redis: rdb})
	require.NoError(t, err)
	exercise(t, c)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	require.True(t, mr.Exists("hid:k"))
	mr.FastForward(2 * time.Minute)
	_, err = c.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Driver: "redis"})
	require.Error(t, err)
	_, err = New(Config{Driver: "memcached"})
	require.Error(t, err)
}
