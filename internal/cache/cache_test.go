package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	store := NewIdempotencyStore(client, time.Hour)

	got, err := store.Get(ctx, "u1", "k1")
	require.NoError(t, err)
	require.Nil(t, got, "cold key reads as miss, not error")

	payload := []byte(`{"orders":[{"id":"abc"}]}`)
	require.NoError(t, store.Set(ctx, "u1", "k1", payload))

	got, err = store.Get(ctx, "u1", "k1")
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// 不同用户同 key 互不可见
	got, err = store.Get(ctx, "u2", "k1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestIdempotencyStoreExpiry(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	store := NewIdempotencyStore(client, time.Hour)

	require.NoError(t, store.Set(ctx, "u1", "k1", []byte("x")))
	mr.FastForward(time.Hour + time.Minute)

	got, err := store.Get(ctx, "u1", "k1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestOrderIDIndexPutGetInvalidate(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	index := NewOrderIDIndex(client, 30*time.Minute)

	_, ok := index.Get(ctx, "u1")
	require.False(t, ok)

	ids := []string{"o3", "o2", "o1"}
	require.NoError(t, index.Put(ctx, "u1", ids))

	got, ok := index.Get(ctx, "u1")
	require.True(t, ok)
	require.Equal(t, ids, got, "list order preserved")

	require.NoError(t, index.Invalidate(ctx, "u1"))
	_, ok = index.Get(ctx, "u1")
	require.False(t, ok)
}

func TestOrderIDIndexPutReplacesExisting(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	index := NewOrderIDIndex(client, 30*time.Minute)

	require.NoError(t, index.Put(ctx, "u1", []string{"old1", "old2"}))
	require.NoError(t, index.Put(ctx, "u1", []string{"new1"}))

	got, ok := index.Get(ctx, "u1")
	require.True(t, ok)
	require.Equal(t, []string{"new1"}, got)
}

func TestOrderIDIndexEmptyListStoresNothing(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	index := NewOrderIDIndex(client, 30*time.Minute)

	require.NoError(t, index.Put(ctx, "u1", nil))
	_, ok := index.Get(ctx, "u1")
	require.False(t, ok, "empty snapshot is treated as cold, recomputed next read")
}

func TestOrderIDIndexExpiry(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	index := NewOrderIDIndex(client, 30*time.Minute)

	require.NoError(t, index.Put(ctx, "u1", []string{"o1"}))
	mr.FastForward(31 * time.Minute)

	_, ok := index.Get(ctx, "u1")
	require.False(t, ok)
}
