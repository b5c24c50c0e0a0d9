package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_GetMiss(t *testing.T) {
	_, kv := setupTestRedis(t)

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_SetGet(t *testing.T) {
	_, kv := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "reminders:last-run", `{"remindersCreated":2}`, time.Hour))
	v, err := kv.Get(ctx, "reminders:last-run")
	require.NoError(t, err)
	assert.Equal(t, `{"remindersCreated":2}`, v)
}

func TestRedisKV_AcquireOnce(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	ok, err := kv.AcquireOnce(ctx, "lock:2025-02-15", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.AcquireOnce(ctx, "lock:2025-02-15", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = kv.AcquireOnce(ctx, "lock:2025-02-15", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, kv.Del(ctx, "lock:2025-02-15"))
	assert.False(t, mr.Exists("lock:2025-02-15"))
}

func TestMemoryKV_AcquireOnceExpires(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2025, 2, 15, 6, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := kv.AcquireOnce(ctx, "k", time.Hour)
	assert.True(t, ok)
	ok, _ = kv.AcquireOnce(ctx, "k", time.Hour)
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, _ = kv.AcquireOnce(ctx, "k", time.Hour)
	assert.True(t, ok)

	require.NoError(t, kv.Set(ctx, "v", "x", 0))
	v, err := kv.Get(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	require.NoError(t, kv.Del(ctx, "v"))
	_, err = kv.Get(ctx, "v")
	assert.ErrorIs(t, err, ErrMiss)
}
