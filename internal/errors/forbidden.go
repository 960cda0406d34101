package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ForbiddenReason represents machine-readable reason codes for 403 errors.
type ForbiddenReason string

const (
	// ReasonNotificationNotOwned is returned when a caller tries to mutate a
	// notification addressed to someone else.
	ReasonNotificationNotOwned ForbiddenReason = "notification_not_owned"
)

// ForbiddenError represents a standardized 403 Forbidden response.
type ForbiddenError struct {
	Error   string                 `json:"error"`
	Reason  ForbiddenReason        `json:"reason"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AbortWithForbidden sends a 403 response with the ForbiddenError and aborts the request.
func AbortWithForbidden(c *gin.Context, err *ForbiddenError) {
	c.AbortWithStatusJSON(http.StatusForbidden, err)
}

// NotificationNotOwned creates a ForbiddenError for a mark-read attempt on a
// notification that belongs to another recipient.
func NotificationNotOwned(notificationID string) *ForbiddenError {
	return &ForbiddenError{
		Error:  "notification does not belong to the authenticated user",
		Reason: ReasonNotificationNotOwned,
		Details: map[string]interface{}{
			"notification_id": notificationID,
		},
	}
}
