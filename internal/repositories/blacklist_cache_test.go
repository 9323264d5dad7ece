package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTokenRepo is a minimal TokenRepository that counts blacklist lookups.
type memTokenRepo struct {
	TokenRepository
	blacklisted map[uuid.UUID]bool
	lookups     int
}

func (m *memTokenRepo) BlacklistToken(ctx context.Context, token *models.BlacklistedToken) (bool, error) {
	if m.blacklisted[token.TokenID] {
		return false, nil
	}
	m.blacklisted[token.TokenID] = true
	return true, nil
}

func (m *memTokenRepo) IsTokenBlacklisted(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	m.lookups++
	return m.blacklisted[tokenID], nil
}

func TestCachedTokenRepository_NilClientReturnsInner(t *testing.T) {
	inner := &memTokenRepo{blacklisted: map[uuid.UUID]bool{}}
	assert.Same(t, inner, NewCachedTokenRepository(inner, nil))
}

func TestCachedTokenRepository_BlacklistWritesThrough(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	inner := &memTokenRepo{blacklisted: map[uuid.UUID]bool{}}
	repo := NewCachedTokenRepository(inner, rdb)
	ctx := context.Background()

	jti := uuid.New()
	inserted, err := repo.BlacklistToken(ctx, &models.BlacklistedToken{
		TokenID:   jti,
		AccountID: uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.True(t, mr.Exists(blacklistKeyPrefix+jti.String()))

	ok, err := repo.IsTokenBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, inner.lookups, "cache hit must not reach the database")

	inserted, err = repo.BlacklistToken(ctx, &models.BlacklistedToken{TokenID: jti, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestCachedTokenRepository_MissFallsBack(t *testing.T) {
	_, rdb := newMiniRedis(t)
	inner := &memTokenRepo{blacklisted: map[uuid.UUID]bool{}}
	repo := NewCachedTokenRepository(inner, rdb)
	ctx := context.Background()

	jti := uuid.New()
	inner.blacklisted[jti] = true

	ok, err := repo.IsTokenBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, inner.lookups)

	ok, err = repo.IsTokenBlacklisted(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedTokenRepository_RedisDownFallsBack(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	inner := &memTokenRepo{blacklisted: map[uuid.UUID]bool{}}
	repo := NewCachedTokenRepository(inner, rdb)
	ctx := context.Background()

	jti := uuid.New()
	inner.blacklisted[jti] = true
	mr.Close()

	ok, err := repo.IsTokenBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedTokenRepository_ExpiredTokenNotCached(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	inner := &memTokenRepo{blacklisted: map[uuid.UUID]bool{}}
	repo := NewCachedTokenRepository(inner, rdb)

	jti := uuid.New()
	_, err := repo.BlacklistToken(context.Background(), &models.BlacklistedToken{
		TokenID:   jti,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(blacklistKeyPrefix+jti.String()))
}
