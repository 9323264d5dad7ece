package models

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistedToken represents a revoked refresh token.
type BlacklistedToken struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	TokenID   uuid.UUID `json:"token_id"`   // jti of the revoked token
	ExpiresAt time.Time `json:"expires_at"` // original token expiry
	CreatedAt time.Time `json:"created_at"` // time of revocation
}
