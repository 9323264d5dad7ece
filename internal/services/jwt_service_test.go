package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-middleware"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_IssuePairClaims(t *testing.T) {
	env := newTestEnv(t)
	acct := &models.Account{ID: uuid.New()}

	pair, err := env.tokens.IssuePair(context.Background(), acct, true)
	require.NoError(t, err)

	access, err := middleware.ValidateToken(pair.Access, env.cfg.JWTSecret, middleware.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, acct.ID.String(), access.Subject)
	assert.Equal(t, middleware.TokenIssuer, access.Issuer)
	assert.True(t, access.Verified)
	assert.WithinDuration(t, time.Now().Add(env.cfg.AccessTokenExpiry), access.ExpiresAt.Time, 2*time.Second)

	refresh, err := middleware.ValidateToken(pair.Refresh, env.cfg.JWTSecret, middleware.TokenTypeRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, access.ID, refresh.ID)

	stored, err := env.tokenRepo.GetRefreshToken(context.Background(), uuid.MustParse(refresh.ID))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, utils.HashToken(pair.Refresh), stored.TokenHash)
	assert.Equal(t, acct.ID, stored.AccountID)
}

func TestJWTService_RefreshCarriesVerifiedFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct, _, err := env.identities.FetchOrCreate(ctx, testPhone)
	require.NoError(t, err)

	pair, err := env.tokens.IssuePair(ctx, acct, false)
	require.NoError(t, err)
	access, err := env.tokens.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)

	claims, err := middleware.ValidateToken(access, env.cfg.JWTSecret, middleware.TokenTypeAccess)
	require.NoError(t, err)
	assert.False(t, claims.Verified)

	stored, err := env.identities.FindByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin, "refresh touches last login")
}

func TestJWTService_RefreshRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct, _, err := env.identities.FetchOrCreate(ctx, testPhone)
	require.NoError(t, err)
	pair, err := env.tokens.IssuePair(ctx, acct, true)
	require.NoError(t, err)

	_, err = env.tokens.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	_, err = env.tokens.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, utils.ErrInvalidToken, "access tokens cannot refresh")

	other := NewJWTService(env.cfg, env.tokenRepo, env.identities).(*jwtService)
	other.secret = []byte("another-secret")
	forged, err := other.IssuePair(ctx, acct, true)
	require.NoError(t, err)
	_, err = env.tokens.Refresh(ctx, forged.Refresh)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	svc := env.tokens.(*jwtService)
	svc.now = func() time.Time { return time.Now().Add(2 * env.cfg.RefreshTokenExpiry) }
	_, err = env.tokens.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, utils.ErrInvalidToken, "stored row past expiry")
}

func TestJWTService_RevokeIsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct, _, err := env.identities.FetchOrCreate(ctx, testPhone)
	require.NoError(t, err)
	pair, err := env.tokens.IssuePair(ctx, acct, true)
	require.NoError(t, err)

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() { errs <- env.tokens.Revoke(ctx, pair.Refresh, acct.ID) }()
	}
	var ok int
	for i := 0; i < 5; i++ {
		if err := <-errs; err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, utils.ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, env.tokenRepo.BlacklistedCount())

	_, err = env.tokens.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestJWTService_VerifyAccess(t *testing.T) {
	env := newTestEnv(t)
	acct := &models.Account{ID: uuid.New()}
	pair, err := env.tokens.IssuePair(context.Background(), acct, false)
	require.NoError(t, err)

	id, err := env.tokens.VerifyAccess(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, id)

	_, err = env.tokens.VerifyAccess(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)
}
