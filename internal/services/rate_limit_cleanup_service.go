package services

import (
	"context"

	"github.com/poofware/todo-service/internal/repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

// RateLimitCleanupService removes expired rate limit counter keys from the database.
type RateLimitCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type rateLimitCleanupService struct {
	repo repositories.RateLimitRepository
}

func NewRateLimitCleanupService(repo repositories.RateLimitRepository) RateLimitCleanupService {
	return &rateLimitCleanupService{repo: repo}
}

// CleanupDaily removes expired rate limit keys and logs any errors.
func (s *rateLimitCleanupService) CleanupDaily(ctx context.Context) error {
	var removed int64
	err := runWithRetry(ctx, "rate limit cleanup", func(ctx context.Context) error {
		n, err := s.repo.CleanupExpired(ctx)
		removed = n
		return err
	})
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired rate_limit_attempts")
		return err
	}

	utils.Logger.WithField("removed", removed).Info("Daily rate limit counter cleanup completed successfully.")
	return nil
}
