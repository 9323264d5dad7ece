package testhelpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-middleware"
	"github.com/stretchr/testify/require"
)

// SignAccessToken mints an HS256 access token the auth middleware accepts.
func SignAccessToken(t *testing.T, secret []byte, userID uuid.UUID, verified bool, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    middleware.TokenIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Type:     middleware.TokenTypeAccess,
		Verified: verified,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err, "Failed to sign test access token")
	return signed
}

// CreateAccessJWT creates a verified-session access token for userID.
func (h *TestHelper) CreateAccessJWT(userID uuid.UUID) string {
	return SignAccessToken(h.T, h.JWTSecret, userID, true, 15*time.Minute)
}
