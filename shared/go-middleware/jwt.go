package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer identifies the service that issues all access/refresh tokens.
const TokenIssuer = "todo-service"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the payload of every token this service signs. Verified is set
// once the session has proven possession of the phone through a code.
type Claims struct {
	jwt.RegisteredClaims
	Type     string `json:"typ"`
	Verified bool   `json:"vrf"`
}

// ValidateToken checks the HS256 signature, expiry, issuer and token type.
// An expired token yields an error wrapping jwt.ErrTokenExpired.
func ValidateToken(tokenString string, secret []byte, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Type != expectedType {
		return nil, fmt.Errorf("unexpected token type %q", claims.Type)
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}
	if claims.ID == "" {
		return nil, errors.New("missing jti claim")
	}
	return claims, nil
}
