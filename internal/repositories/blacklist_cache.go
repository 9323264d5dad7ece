package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/models"
	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "blacklist:"

// cachedTokenRepository fronts the blacklist lookups with Redis. Redis is
// a cache only; every error falls through to the wrapped repository.
type cachedTokenRepository struct {
	TokenRepository
	rdb *redis.Client
	now func() time.Time
}

// NewCachedTokenRepository wraps inner with a Redis blacklist cache. A nil
// client returns inner unchanged.
func NewCachedTokenRepository(inner TokenRepository, rdb *redis.Client) TokenRepository {
	if rdb == nil {
		return inner
	}
	return &cachedTokenRepository{TokenRepository: inner, rdb: rdb, now: time.Now}
}

func (r *cachedTokenRepository) BlacklistToken(ctx context.Context, token *models.BlacklistedToken) (bool, error) {
	inserted, err := r.TokenRepository.BlacklistToken(ctx, token)
	if err != nil {
		return false, err
	}
	r.remember(ctx, token.TokenID, token.ExpiresAt)
	return inserted, nil
}

func (r *cachedTokenRepository) IsTokenBlacklisted(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	n, err := r.rdb.Exists(ctx, blacklistKeyPrefix+tokenID.String()).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		utils.Logger.WithError(err).Warn("blacklist cache lookup failed; falling back to database")
	}
	return r.TokenRepository.IsTokenBlacklisted(ctx, tokenID)
}

func (r *cachedTokenRepository) remember(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return
	}
	if err := r.rdb.Set(ctx, blacklistKeyPrefix+tokenID.String(), 1, ttl).Err(); err != nil {
		utils.Logger.WithError(err).Warn("failed to cache blacklisted token")
	}
}
