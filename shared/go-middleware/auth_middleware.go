package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-utils"
)

type contextKey string

const (
	ContextKeyUserID   = contextKey("userID")
	ContextKeyVerified = contextKey("verifiedSession")
)

// AuthMiddleware – for protected endpoints. A missing, invalid or expired
// access token returns 401.
//   • The JWT is read from Authorization: Bearer ...
//   • If requireVerified is set, tokens minted before the phone code was
//     confirmed are rejected with 403.
func AuthMiddleware(secret []byte, requireVerified bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractAccessToken(r)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, err.Error(), nil,
				)
				return
			}

			claims, vErr := ValidateToken(tokenStr, secret, TokenTypeAccess)
			if vErr != nil {
				if errors.Is(vErr, jwt.ErrTokenExpired) {
					utils.RespondErrorWithCode(
						w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", nil, vErr,
					)
					return
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", nil, vErr,
				)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid subject", nil, err,
				)
				return
			}

			if requireVerified && !claims.Verified {
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodePhoneNotVerified,
					"Confirm the code sent to your phone first; this session is not verified yet", nil,
				)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			ctx = context.WithValue(ctx, ContextKeyVerified, claims.Verified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the account id placed by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return id, ok
}

// VerifiedFromContext reports whether the caller's session is phone-verified.
func VerifiedFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(ContextKeyVerified).(bool)
	return v
}

func extractAccessToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", errors.New("missing Authorization header")
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if tok == "" {
		return "", errors.New("missing Authorization header")
	}
	return tok, nil
}
