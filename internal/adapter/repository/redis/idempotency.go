package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/pharmledger/internal/infrastructure/metrics"
	"github.com/iho/pharmledger/internal/usecase"
)

// PendingMarker is stored under a key while its first request is in flight.
const PendingMarker = usecase.IdempotencyPending

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client  redis.Cmdable
	prefix  string
	metrics *metrics.Metrics
}

// NewIdempotencyStore creates a new IdempotencyStore. m may be nil.
func NewIdempotencyStore(client redis.Cmdable, m *metrics.Metrics) *IdempotencyStore {
	return &IdempotencyStore{
		client:  client,
		prefix:  "pharmledger:idempotency:",
		metrics: m,
	}
}

// CheckAndSet atomically checks if key exists, sets if not.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	var value any = PendingMarker
	if response != nil {
		value = response
	}

	set, err := s.client.SetNX(ctx, fullKey, value, ttl).Result()
	if err != nil {
		recordRedisError(s.metrics, "idempotency_check")
		return false, nil, err
	}
	if set {
		return false, nil, nil
	}

	// Another request got there first
	existing, err := s.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between the two calls
			return false, nil, nil
		}
		recordRedisError(s.metrics, "idempotency_check")
		return false, nil, err
	}
	return true, existing, nil
}

// Update updates an existing idempotency key with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, response, ttl).Err(); err != nil {
		recordRedisError(s.metrics, "idempotency_update")
		return err
	}
	return nil
}

// Release removes the key so a failed request can be sent again.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
