package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoJWKS       = errors.New("no JWKS URL provided")
)

// StandardClaims represents the standard claims in a JWT token.
type StandardClaims struct {
	Sub    string `json:"sub"`
	UserId string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// recipientFromClaims picks the identity used as the registry key.
// Prefers sub, then user_id, then email for providers that omit sub.
func recipientFromClaims(claims *StandardClaims) (string, error) {
	if claims.Sub != "" {
		return claims.Sub, nil
	}
	if claims.UserId != "" {
		return claims.UserId, nil
	}
	if claims.Email != "" {
		return claims.Email, nil
	}
	return "", ErrInvalidToken
}

// TokenValidator resolves a presented credential to a recipient identity.
// Verification is delegated to the identity provider backing the implementation.
type TokenValidator interface {
	Verify(ctx context.Context, credential string) (string, error)
}
