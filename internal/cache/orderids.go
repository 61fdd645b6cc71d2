package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderIDIndex caches the full ordered list of a user's order IDs as a
// Redis List (newest first). Pages are served with LRANGE; the whole key
// is dropped whenever a new order is created for the user, so staleness
// only ever costs a recompute, never a wrong write.
type OrderIDIndex struct {
	cache *redis.Client
	ttl   time.Duration
}

func NewOrderIDIndex(cache *redis.Client, ttl time.Duration) *OrderIDIndex {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &OrderIDIndex{cache: cache, ttl: ttl}
}

func orderIndexKey(userID string) string {
	return fmt.Sprintf("orders:index:%s", userID)
}

// Get returns the cached ID list, or (nil, false) on a cold key.
func (s *OrderIDIndex) Get(ctx context.Context, userID string) ([]string, bool) {
	key := orderIndexKey(userID)
	exists, err := s.cache.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return nil, false
	}
	ids, err := s.cache.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, false
	}
	return ids, true
}

// Put replaces the cached list atomically (DEL + RPUSH + EXPIRE in one pipeline).
func (s *OrderIDIndex) Put(ctx context.Context, userID string, ids []string) error {
	key := orderIndexKey(userID)
	pipe := s.cache.Pipeline()
	pipe.Del(ctx, key)
	if len(ids) > 0 {
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		pipe.RPush(ctx, key, args...)
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate drops the user's index; next read recomputes from the DB.
func (s *OrderIDIndex) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, orderIndexKey(userID)).Err()
}
