package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/internal/repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

// RateLimiterService provides a high-level interface for checking various rate limits.
type RateLimiterService interface {
	CheckSMSRateLimits(ctx context.Context, ip, phoneNumber string) error
	CheckLoginRateLimit(ctx context.Context, username string) error
	ResetLoginRateLimit(ctx context.Context, username string) error
}

type rateLimiterService struct {
	repo repositories.RateLimitRepository
	cfg  *config.Config
}

func NewRateLimiterService(repo repositories.RateLimitRepository, cfg *config.Config) RateLimiterService {
	return &rateLimiterService{repo: repo, cfg: cfg}
}

// CheckSMSRateLimits checks global, per-IP, and per-phone-number limits for SMS requests.
func (s *rateLimiterService) CheckSMSRateLimits(ctx context.Context, ip, phoneNumber string) error {
	checks := []struct {
		key   string
		limit int
		label string
	}{
		{"sms:global", s.cfg.GlobalSMSLimitPerHour, "Global"},
		{fmt.Sprintf("sms:ip:%s", ip), s.cfg.SMSLimitPerIPPerHour, "Per-IP"},
		{fmt.Sprintf("sms:phone:%s", phoneNumber), s.cfg.SMSLimitPerNumberPerHour, "Per-phone"},
	}
	for _, c := range checks {
		allowed, err := s.repo.IncrementAndCheck(ctx, c.key, c.limit, s.cfg.RateLimitWindow)
		if err != nil {
			return err
		}
		if !allowed {
			utils.Logger.Warnf("%s SMS rate limit exceeded (key: %s)", c.label, c.key)
			return utils.ErrRateLimitExceeded
		}
	}
	return nil
}

// CheckLoginRateLimit counts a login attempt for username.
func (s *rateLimiterService) CheckLoginRateLimit(ctx context.Context, username string) error {
	key := loginKey(username)
	allowed, err := s.repo.IncrementAndCheck(ctx, key, s.cfg.MaxLoginAttempts, s.cfg.AttemptWindow)
	if err != nil {
		return err
	}
	if !allowed {
		utils.Logger.Warnf("Login rate limit exceeded (key: %s)", key)
		return utils.ErrRateLimitExceeded
	}
	return nil
}

// ResetLoginRateLimit clears the counter after a successful login.
func (s *rateLimiterService) ResetLoginRateLimit(ctx context.Context, username string) error {
	return s.repo.Reset(ctx, loginKey(username))
}

func loginKey(username string) string {
	return "login:user:" + strings.ToLower(strings.TrimSpace(username))
}
