package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyTTL bounds how long a submission key replays its original request id.
const IdempotencyTTL = 24 * time.Hour

// Idempotency remembers which request a client-supplied key produced.
type Idempotency interface {
	Lookup(ctx context.Context, userID, key string) (requestID string, ok bool, err error)
	Remember(ctx context.Context, userID, key, requestID string) error
}

type RedisIdempotency struct {
	redisClient *redis.Client
}

func NewRedisIdempotency(rdb *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{redisClient: rdb}
}

func idemKey(userID, key string) string {
	return fmt.Sprintf("idem:submit:%s:%s", userID, key)
}

func (r *RedisIdempotency) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := r.redisClient.Get(ctx, idemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, true, nil
}

// Remember keeps the first request id stored for a key.
func (r *RedisIdempotency) Remember(ctx context.Context, userID, key, requestID string) error {
	if err := r.redisClient.SetNX(ctx, idemKey(userID, key), requestID, IdempotencyTTL).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}
