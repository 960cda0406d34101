package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lumen-collective/lumenhub-api/internal/errors"
	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

// Define a custom type for context keys to avoid collisions.
type contextKey string

// RecipientIDKey is the gin context key for the authenticated recipient.
const RecipientIDKey contextKey = "recipient_id"

type Middleware struct {
	validator TokenValidator
}

func NewMiddleware(validator TokenValidator) *Middleware {
	return &Middleware{validator: validator}
}

// RequireAuth validates the Bearer credential and attaches the recipient
// identity to the request context. Credentials are accepted from the
// Authorization header only; tokens in the query string are rejected because
// URIs end up in intermediary logs.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			errors.AbortWithUnauthorized(c, "Authorization header with a Bearer token is required")
			return
		}

		recipientID, err := m.validator.Verify(c.Request.Context(), token)
		if err != nil {
			errors.AbortWithUnauthorized(c, "Invalid or expired token")
			return
		}

		ctx := logger.WithRecipientID(c.Request.Context(), recipientID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(RecipientIDKey), recipientID)

		c.Next()
	}
}

// BearerToken extracts the Bearer token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", false
	}

	return token, true
}

// GetRecipientID extracts the authenticated recipient from the gin context.
func GetRecipientID(c *gin.Context) (string, bool) {
	recipientID, exists := c.Get(string(RecipientIDKey))
	if !exists {
		return "", false
	}

	id, ok := recipientID.(string)
	return id, ok
}
