package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps the serialized checkout payload keyed by
// (user, idempotency key) so a retried submission replays the exact
// response bytes instead of re-running the transaction.
type IdempotencyStore struct {
	cache *redis.Client
	ttl   time.Duration
}

func NewIdempotencyStore(cache *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IdempotencyStore{cache: cache, ttl: ttl}
}

func idemKey(userID, key string) string {
	return fmt.Sprintf("checkout:%s:%s", userID, key)
}

// Get returns the stored payload bytes, or (nil, nil) on miss.
func (s *IdempotencyStore) Get(ctx context.Context, userID, key string) ([]byte, error) {
	data, err := s.cache.Get(ctx, idemKey(userID, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores the payload with the configured expiry.
func (s *IdempotencyStore) Set(ctx context.Context, userID, key string, payload []byte) error {
	return s.cache.Set(ctx, idemKey(userID, key), payload, s.ttl).Err()
}
