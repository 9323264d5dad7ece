package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/models"
)

// FakeTokenRepository is an in-memory repositories.TokenRepository.
type FakeTokenRepository struct {
	mu          sync.Mutex
	refresh     map[uuid.UUID]*models.RefreshToken
	blacklisted map[uuid.UUID]*models.BlacklistedToken
}

func NewFakeTokenRepository() *FakeTokenRepository {
	return &FakeTokenRepository{
		refresh:     map[uuid.UUID]*models.RefreshToken{},
		blacklisted: map[uuid.UUID]*models.BlacklistedToken{},
	}
}

func (r *FakeTokenRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.CreatedAt = time.Now()
	c := *token
	r.refresh[token.ID] = &c
	return nil
}

func (r *FakeTokenRepository) GetRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.refresh[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *FakeTokenRepository) BlacklistToken(ctx context.Context, token *models.BlacklistedToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blacklisted[token.TokenID]; ok {
		return false, nil
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	c := *token
	r.blacklisted[token.TokenID] = &c
	return true, nil
}

func (r *FakeTokenRepository) IsTokenBlacklisted(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blacklisted[tokenID]
	return ok, nil
}

func (r *FakeTokenRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.refresh {
		if t.ExpiresAt.Before(now) {
			delete(r.refresh, id)
			n++
		}
	}
	for id, t := range r.blacklisted {
		if t.ExpiresAt.Before(now) {
			delete(r.blacklisted, id)
			n++
		}
	}
	return n, nil
}

// BlacklistedCount returns the number of blacklist rows.
func (r *FakeTokenRepository) BlacklistedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blacklisted)
}

// FakeRateLimitRepository counts hits per key in memory. Windows never
// expire unless Reset is called.
type FakeRateLimitRepository struct {
	mu     sync.Mutex
	counts map[string]int

	// Err, when set, is returned by every IncrementAndCheck.
	Err error
}

func NewFakeRateLimitRepository() *FakeRateLimitRepository {
	return &FakeRateLimitRepository{counts: map[string]int{}}
}

func (r *FakeRateLimitRepository) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	r.counts[key]++
	return r.counts[key] <= limit, nil
}

func (r *FakeRateLimitRepository) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, key)
	return nil
}

func (r *FakeRateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// Count returns the current hit count for key.
func (r *FakeRateLimitRepository) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}
