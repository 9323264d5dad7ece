package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is an outstanding (issued) refresh token. ID equals the
// token's jti; only the hash of the signed string is stored.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(rt.ExpiresAt)
}
