package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "stridelog:revoked:"

// RedisRevocationStore backs the revocation set with Redis so revocations
// survive restarts and are shared across instances. Expiry is delegated to
// key TTLs, which gives the lazy-expiry semantics for free.
type RedisRevocationStore struct {
	client redis.Cmdable
}

// NewRedisRevocationStore wraps an existing client. The caller owns the
// client lifecycle.
func NewRedisRevocationStore(client redis.Cmdable) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, redisKeyPrefix+jti, "1", ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
