package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/zap"
)

// RedisStore shares revocations between instances. Keys expire with the
// token, so no cleanup pass is needed.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *logging.Service
}

func NewRedisStore(client redis.UniversalClient, prefix string, logger *logging.Service) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix + "revoked:",
		logger: logger,
	}
}

func (r *RedisStore) key(jti string) string {
	return r.prefix + jti
}

func (r *RedisStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, r.key(jti), expiresAt.Unix(), ttl).Err(); err != nil {
		r.logger.Error("failed to revoke token in redis", zap.String("jti_hash", hashJTI(jti)), zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) CleanupExpiredTokens(ctx context.Context) error {
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
