package services

import (
	"context"
	"time"

	"github.com/poofware/todo-service/internal/repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

// TokenCleanupService removes expired refresh tokens each night.
type TokenCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type tokenCleanupService struct {
	tokenRepo repositories.TokenRepository
	now       func() time.Time
}

func NewTokenCleanupService(tokenRepo repositories.TokenRepository) TokenCleanupService {
	return &tokenCleanupService{tokenRepo: tokenRepo, now: time.Now}
}

// CleanupDaily removes outstanding and blacklisted tokens that have expired.
func (s *tokenCleanupService) CleanupDaily(ctx context.Context) error {
	var removed int64
	err := runWithRetry(ctx, "token cleanup", func(ctx context.Context) error {
		n, err := s.tokenRepo.CleanupExpired(ctx, s.now())
		removed = n
		return err
	})
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired refresh_tokens/blacklisted_tokens")
		return err
	}

	utils.Logger.WithField("removed", removed).Info("Daily token cleanup (expired only) completed successfully.")
	return nil
}
