package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// HMACValidator validates JWT credentials signed with a shared HMAC secret.
// Used in development and in environments without a JWKS-backed provider.
type HMACValidator struct {
	secret []byte
}

func NewHMACValidator(secret string) *HMACValidator {
	return &HMACValidator{secret: []byte(secret)}
}

// Verify validates the credential and returns the recipient identity.
func (v *HMACValidator) Verify(ctx context.Context, credential string) (string, error) {
	token, err := jwt.ParseWithClaims(
		credential,
		&StandardClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*StandardClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	if !claims.VerifyExpiresAt(time.Now(), true) {
		return "", ErrExpiredToken
	}

	return recipientFromClaims(claims)
}
