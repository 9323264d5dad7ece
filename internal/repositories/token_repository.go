package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/todo-service/internal/models"
	repos "github.com/poofware/todo-service/shared/go-repositories"
)

// TokenRepository keeps outstanding refresh tokens and the blacklist of
// revoked ones.
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// GetRefreshToken fetches an outstanding token by jti; nil if not found.
	GetRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)

	// BlacklistToken records a revocation. inserted is false when the jti
	// was already blacklisted, which lets concurrent revokes agree on a
	// single winner.
	BlacklistToken(ctx context.Context, token *models.BlacklistedToken) (inserted bool, err error)
	IsTokenBlacklisted(ctx context.Context, tokenID uuid.UUID) (bool, error)

	// CleanupExpired removes outstanding and blacklisted rows whose token
	// expired before now.
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db repos.DB
}

func NewTokenRepository(db repos.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
        INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING created_at
    `
	return r.db.QueryRow(ctx, query,
		token.ID,
		token.AccountID,
		token.TokenHash,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
}

func (r *tokenRepository) GetRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	query := `
        SELECT id, account_id, token_hash, expires_at, created_at
        FROM refresh_tokens
        WHERE id = $1
    `
	var rt models.RefreshToken
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rt.ID,
		&rt.AccountID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

func (r *tokenRepository) BlacklistToken(ctx context.Context, token *models.BlacklistedToken) (bool, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	query := `
        INSERT INTO blacklisted_tokens (id, token_id, account_id, expires_at, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (token_id) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query, token.ID, token.TokenID, token.AccountID, token.ExpiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepository) IsTokenBlacklisted(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE token_id = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, tokenID).Scan(&exists)
	return exists, err
}

func (r *tokenRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		`DELETE FROM blacklisted_tokens WHERE expires_at < $1`,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`,
	} {
		tag, err := r.db.Exec(ctx, q, now)
		if err != nil {
			return total, err
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
