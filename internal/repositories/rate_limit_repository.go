package repositories

import (
	"context"
	"time"

	repos "github.com/poofware/todo-service/shared/go-repositories"
)

// RateLimitRepository provides an atomic way to check and increment
// fixed-window rate limit counters.
type RateLimitRepository interface {
	// IncrementAndCheck atomically increments the counter for key and
	// reports whether the request is still allowed (count <= limit).
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Reset drops the counter for key.
	Reset(ctx context.Context, key string) error
	// CleanupExpired removes all counter keys that have expired.
	CleanupExpired(ctx context.Context) (int64, error)
}

type rateLimitRepository struct {
	db repos.DB
}

func NewRateLimitRepository(db repos.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	query := `
        INSERT INTO rate_limit_attempts (key, attempt_count, expires_at)
        VALUES ($1, 1, NOW() + make_interval(secs => $2))
        ON CONFLICT (key) DO UPDATE
        SET attempt_count = CASE
            WHEN rate_limit_attempts.expires_at < NOW() THEN 1
            ELSE rate_limit_attempts.attempt_count + 1
        END,
        expires_at = CASE
            WHEN rate_limit_attempts.expires_at < NOW() THEN NOW() + make_interval(secs => $2)
            ELSE rate_limit_attempts.expires_at
        END
        RETURNING attempt_count
    `

	var currentCount int
	if err := r.db.QueryRow(ctx, query, key, window.Seconds()).Scan(&currentCount); err != nil {
		return false, err
	}
	return currentCount <= limit, nil
}

func (r *rateLimitRepository) Reset(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE key = $1`, key)
	return err
}

func (r *rateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
