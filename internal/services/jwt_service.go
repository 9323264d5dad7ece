package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/internal/models"
	"github.com/poofware/todo-service/internal/repositories"
	"github.com/poofware/todo-service/shared/go-middleware"
	sharedmodels "github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

// TokenPair is what sign-up, verification and login hand back to clients.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService mints and checks access/refresh tokens. Refresh tokens are
// stored as outstanding rows and revoked through the blacklist.
type TokenService interface {
	IssuePair(ctx context.Context, acct *sharedmodels.Account, verified bool) (*TokenPair, error)
	// Refresh returns a new access token and touches the account's
	// last-login. utils.ErrInvalidToken if the refresh token is malformed,
	// expired, unknown or blacklisted.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Revoke blacklists a refresh token belonging to accountID. A second
	// revoke of the same token fails with utils.ErrInvalidToken.
	Revoke(ctx context.Context, refreshToken string, accountID uuid.UUID) error
	VerifyAccess(ctx context.Context, accessToken string) (uuid.UUID, error)
}

type jwtService struct {
	secret     []byte
	cfg        *config.Config
	tokenRepo  repositories.TokenRepository
	identities IdentityStore
	now        func() time.Time
}

func NewJWTService(cfg *config.Config, tokenRepo repositories.TokenRepository, identities IdentityStore) TokenService {
	return &jwtService{
		secret:     cfg.JWTSecret,
		cfg:        cfg,
		tokenRepo:  tokenRepo,
		identities: identities,
		now:        time.Now,
	}
}

func (j *jwtService) IssuePair(ctx context.Context, acct *sharedmodels.Account, verified bool) (*TokenPair, error) {
	access, _, err := j.sign(acct.ID, middleware.TokenTypeAccess, verified, j.cfg.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}

	refresh, claims, err := j.sign(acct.ID, middleware.TokenTypeRefresh, verified, j.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}
	rt := &models.RefreshToken{
		ID:        uuid.MustParse(claims.ID),
		AccountID: acct.ID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := j.tokenRepo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (j *jwtService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, accountID, err := j.checkRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	access, _, err := j.sign(accountID, middleware.TokenTypeAccess, claims.Verified, j.cfg.AccessTokenExpiry)
	if err != nil {
		return "", err
	}
	if err := j.identities.TouchLastLogin(ctx, accountID); err != nil {
		return "", err
	}
	return access, nil
}

func (j *jwtService) Revoke(ctx context.Context, refreshToken string, accountID uuid.UUID) error {
	claims, owner, err := j.checkRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if owner != accountID {
		utils.Logger.WithField("account_id", accountID).Warn("Refusing to revoke another account's refresh token")
		return utils.ErrInvalidToken
	}

	inserted, err := j.tokenRepo.BlacklistToken(ctx, &models.BlacklistedToken{
		ID:        uuid.New(),
		AccountID: owner,
		TokenID:   uuid.MustParse(claims.ID),
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return err
	}
	if !inserted {
		return utils.ErrInvalidToken
	}
	return nil
}

func (j *jwtService) VerifyAccess(_ context.Context, accessToken string) (uuid.UUID, error) {
	claims, err := middleware.ValidateToken(accessToken, j.secret, middleware.TokenTypeAccess)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", utils.ErrUnauthorized, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, utils.ErrUnauthorized
	}
	return id, nil
}

// checkRefresh validates signature and claims, then requires an outstanding,
// unexpired, non-blacklisted row whose hash matches.
func (j *jwtService) checkRefresh(ctx context.Context, refreshToken string) (*middleware.Claims, uuid.UUID, error) {
	claims, err := middleware.ValidateToken(refreshToken, j.secret, middleware.TokenTypeRefresh)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %v", utils.ErrInvalidToken, err)
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, uuid.Nil, utils.ErrInvalidToken
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, utils.ErrInvalidToken
	}

	stored, err := j.tokenRepo.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if stored == nil || stored.AccountID != accountID ||
		stored.TokenHash != utils.HashToken(refreshToken) || stored.IsExpired(j.now()) {
		return nil, uuid.Nil, utils.ErrInvalidToken
	}

	blacklisted, err := j.tokenRepo.IsTokenBlacklisted(ctx, tokenID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if blacklisted {
		return nil, uuid.Nil, utils.ErrInvalidToken
	}
	return claims, accountID, nil
}

func (j *jwtService) sign(
	subject uuid.UUID,
	tokenType string,
	verified bool,
	ttl time.Duration,
) (string, *middleware.Claims, error) {
	now := j.now()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    middleware.TokenIssuer,
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Type:     tokenType,
		Verified: verified,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}
