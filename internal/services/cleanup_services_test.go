package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/models"
	"github.com/poofware/todo-service/internal/repositories"
	sharedmodels "github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCleanupService_RemovesExpired(t *testing.T) {
	repo := testhelpers.NewFakeTokenRepository()
	ctx := context.Background()
	accountID := uuid.New()

	require.NoError(t, repo.CreateRefreshToken(ctx, &models.RefreshToken{
		ID: uuid.New(), AccountID: accountID, TokenHash: "old", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	live := uuid.New()
	require.NoError(t, repo.CreateRefreshToken(ctx, &models.RefreshToken{
		ID: live, AccountID: accountID, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, NewTokenCleanupService(repo).CleanupDaily(ctx))

	kept, err := repo.GetRefreshToken(ctx, live)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

type flakyTokenRepo struct {
	repositories.TokenRepository
	failures int
	calls    int
}

func (r *flakyTokenRepo) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	r.calls++
	if r.calls <= r.failures {
		return 0, io.EOF
	}
	return 3, nil
}

func TestTokenCleanupService_RetriesTransientOnce(t *testing.T) {
	repo := &flakyTokenRepo{failures: 1}
	require.NoError(t, NewTokenCleanupService(repo).CleanupDaily(context.Background()))
	assert.Equal(t, 2, repo.calls)

	repo = &flakyTokenRepo{failures: 2}
	assert.ErrorIs(t, NewTokenCleanupService(repo).CleanupDaily(context.Background()), io.EOF)
	assert.Equal(t, 2, repo.calls)
}

func TestRunWithRetry_NonTransientNotRetried(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), "job", func(context.Context) error {
		calls++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestVerificationCleanupService(t *testing.T) {
	repo := testhelpers.NewFakeSMSVerificationRepository()
	ctx := context.Background()
	acct := &sharedmodels.Account{ID: uuid.New(), Phone: testPhone}
	_, err := NewVerificationLedger(repo, testConfig()).Issue(ctx, acct, testPhone)
	require.NoError(t, err)

	cfg := testConfig()
	disabled := NewVerificationCleanupService(repo, cfg)
	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.CleanupDaily(ctx))
	assert.Len(t, repo.All(), 1, "history is kept by default")

	cfg.VerificationRetention = time.Hour
	svc := NewVerificationCleanupService(repo, cfg).(*verificationCleanupService)
	assert.True(t, svc.Enabled())
	require.NoError(t, svc.CleanupDaily(ctx))
	assert.Len(t, repo.All(), 1, "recent codes survive")

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, svc.CleanupDaily(ctx))
	assert.Empty(t, repo.All())
}

func TestRateLimitCleanupService(t *testing.T) {
	repo := testhelpers.NewFakeRateLimitRepository()
	assert.NoError(t, NewRateLimitCleanupService(repo).CleanupDaily(context.Background()))
}
