package services

import (
	"context"
	"time"

	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

// VerificationCleanupService prunes verification-code history older than
// the configured retention.
type VerificationCleanupService interface {
	// Enabled is false when retention is unset; history is then kept.
	Enabled() bool
	CleanupDaily(ctx context.Context) error
}

type verificationCleanupService struct {
	repo      repositories.SMSVerificationRepository
	retention time.Duration
	now       func() time.Time
}

func NewVerificationCleanupService(repo repositories.SMSVerificationRepository, cfg *config.Config) VerificationCleanupService {
	return &verificationCleanupService{repo: repo, retention: cfg.VerificationRetention, now: time.Now}
}

func (s *verificationCleanupService) Enabled() bool {
	return s.retention > 0
}

func (s *verificationCleanupService) CleanupDaily(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	cutoff := s.now().Add(-s.retention)

	var removed int64
	err := runWithRetry(ctx, "verification cleanup", func(ctx context.Context) error {
		n, err := s.repo.CleanupBefore(ctx, cutoff)
		removed = n
		return err
	})
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup sms_verification_codes")
		return err
	}

	utils.Logger.WithField("removed", removed).Info("Daily verification-code cleanup completed successfully.")
	return nil
}
