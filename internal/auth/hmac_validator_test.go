package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signHMAC(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestHMACValidatorVerify(t *testing.T) {
	v := NewHMACValidator("test-secret")

	credential := signHMAC(t, "test-secret", StandardClaims{
		Sub: "u42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	recipientID, err := v.Verify(context.Background(), credential)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if recipientID != "u42" {
		t.Errorf("expected recipient u42, got %q", recipientID)
	}
}

func TestHMACValidatorIdentityFallback(t *testing.T) {
	v := NewHMACValidator("test-secret")

	cases := []struct {
		name   string
		claims StandardClaims
		want   string
	}{
		{"user_id when sub is absent", StandardClaims{UserId: "uid-7"}, "uid-7"},
		{"email as last resort", StandardClaims{Email: "a@b.test"}, "a@b.test"},
	}
	for _, tc := range cases {
		tc.claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
		credential := signHMAC(t, "test-secret", tc.claims)

		got, err := v.Verify(context.Background(), credential)
		if err != nil {
			t.Fatalf("%s: verify failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestHMACValidatorRejectsExpiredToken(t *testing.T) {
	v := NewHMACValidator("test-secret")

	credential := signHMAC(t, "test-secret", StandardClaims{
		Sub: "u42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if _, err := v.Verify(context.Background(), credential); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for an expired credential, got %v", err)
	}
}

func TestHMACValidatorRejectsWrongSecret(t *testing.T) {
	v := NewHMACValidator("test-secret")

	credential := signHMAC(t, "other-secret", StandardClaims{
		Sub: "u42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := v.Verify(context.Background(), credential); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for a forged credential, got %v", err)
	}
}

func TestHMACValidatorRejectsGarbage(t *testing.T) {
	v := NewHMACValidator("test-secret")

	if _, err := v.Verify(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACValidatorRejectsMissingIdentity(t *testing.T) {
	v := NewHMACValidator("test-secret")

	credential := signHMAC(t, "test-secret", StandardClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := v.Verify(context.Background(), credential); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken when no identity claim is present, got %v", err)
	}
}
