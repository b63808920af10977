package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the result cache with Redis so entries survive restarts
// and are shared between instances. Redis expires keys natively, which
// covers both the lazy-expiry and sweep requirements.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "Redis cache read failed",
				slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return raw, true
}

func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		// A cache write failure is not fatal; the next read just misses.
		s.logger.WarnContext(ctx, "Redis cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}
