package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// incrementScript bumps the counter and starts the window on the first hit.
var incrementScript = redis.NewScript(`
    local count = redis.call('INCR', KEYS[1])
    if count == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
    end
    return count
`)

type redisRateLimitRepository struct {
	rdb *redis.Client
}

// NewRedisRateLimitRepository keeps counters in Redis; windows expire on
// their own so CleanupExpired has nothing to do.
func NewRedisRateLimitRepository(rdb *redis.Client) RateLimitRepository {
	return &redisRateLimitRepository{rdb: rdb}
}

func (r *redisRateLimitRepository) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := incrementScript.Run(ctx, r.rdb, []string{rateLimitKeyPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

func (r *redisRateLimitRepository) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, rateLimitKeyPrefix+key).Err()
}

func (r *redisRateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
