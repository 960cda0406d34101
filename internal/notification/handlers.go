package notification

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lumen-collective/lumenhub-api/internal/auth"
	"github.com/lumen-collective/lumenhub-api/internal/errors"
	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checks are handled by the CORS layer in front.
	},
}

// HandlerOptions tunes the live channel endpoints.
type HandlerOptions struct {
	Client ClientOptions
	// HandshakeTimeout bounds how long a connection without an
	// Authorization header may take to present its auth frame.
	HandshakeTimeout time.Duration
	// PongTimeout is the read deadline extended on every pong.
	PongTimeout time.Duration
}

// DefaultHandlerOptions returns the options used when none are configured.
func DefaultHandlerOptions() HandlerOptions {
	return HandlerOptions{
		Client:           DefaultClientOptions(),
		HandshakeTimeout: 10 * time.Second,
		PongTimeout:      75 * time.Second,
	}
}

// Handler exposes the notification HTTP surface and the live channel.
type Handler struct {
	store     Store
	registry  *Registry
	resolver  *Resolver
	validator auth.TokenValidator
	opts      HandlerOptions
	logger    *logger.Logger
}

// NewHandler creates the notification handler.
func NewHandler(store Store, registry *Registry, resolver *Resolver, validator auth.TokenValidator, opts HandlerOptions, log *logger.Logger) *Handler {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandlerOptions().HandshakeTimeout
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = DefaultHandlerOptions().PongTimeout
	}

	return &Handler{
		store:     store,
		registry:  registry,
		resolver:  resolver,
		validator: validator,
		opts:      opts,
		logger:    log,
	}
}

// listItem is one notification in the list response, with the related item
// resolved to its display shape.
type listItem struct {
	ID          string        `json:"id"`
	Type        Type          `json:"type"`
	Content     string        `json:"content"`
	Read        bool          `json:"read"`
	RelatedItem *ResolvedItem `json:"relatedItem,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type listResponse struct {
	Notifications []listItem `json:"notifications"`
	UnreadCount   int64      `json:"unreadCount"`
}

// List handles GET /api/v1/notifications.
func (h *Handler) List(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("notification_handler")

	recipientID, exists := auth.GetRecipientID(c)
	if !exists {
		errors.AbortWithUnauthorized(c, "authentication required")
		return
	}

	notifications, err := h.store.ListByRecipient(c.Request.Context(), recipientID)
	if err != nil {
		log.Error("failed to list notifications", slog.String("error", err.Error()))
		errors.AbortWithInternal(c, "failed to list notifications")
		return
	}

	unread, err := h.store.CountUnread(c.Request.Context(), recipientID)
	if err != nil {
		log.Error("failed to count unread notifications", slog.String("error", err.Error()))
		errors.AbortWithInternal(c, "failed to list notifications")
		return
	}

	items := make([]listItem, 0, len(notifications))
	for _, n := range notifications {
		resolved, err := h.resolver.Resolve(c.Request.Context(), n.RelatedItem)
		if err != nil {
			// A single unresolvable reference should not fail the list.
			log.Warn("failed to resolve related item",
				slog.String("notification_id", n.ID),
				slog.String("error", err.Error()))
			resolved = nil
		}
		items = append(items, listItem{
			ID:          n.ID,
			Type:        n.Type,
			Content:     n.Content,
			Read:        n.Read,
			RelatedItem: resolved,
			CreatedAt:   n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, listResponse{
		Notifications: items,
		UnreadCount:   unread,
	})
}

// MarkRead handles PATCH /api/v1/notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("notification_handler")

	recipientID, exists := auth.GetRecipientID(c)
	if !exists {
		errors.AbortWithUnauthorized(c, "authentication required")
		return
	}

	id := c.Param("id")
	if id == "" {
		errors.AbortWithBadRequest(c, "id parameter is required", nil)
		return
	}

	err := h.store.MarkRead(c.Request.Context(), id, recipientID)
	switch err {
	case nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case ErrNotFound:
		errors.AbortWithNotFound(c, "notification not found")
	case ErrNotOwner:
		errors.AbortWithForbidden(c, errors.NotificationNotOwned(id))
	default:
		log.Error("failed to mark notification read",
			slog.String("notification_id", id),
			slog.String("error", err.Error()))
		errors.AbortWithInternal(c, "failed to mark notification read")
	}
}

// MarkAllRead handles POST /api/v1/notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("notification_handler")

	recipientID, exists := auth.GetRecipientID(c)
	if !exists {
		errors.AbortWithUnauthorized(c, "authentication required")
		return
	}

	updated, err := h.store.MarkAllRead(c.Request.Context(), recipientID)
	if err != nil {
		log.Error("failed to mark all notifications read", slog.String("error", err.Error()))
		errors.AbortWithInternal(c, "failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

// authFrame is the first-message handshake sent by clients that cannot set
// an Authorization header during the websocket upgrade.
type authFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type wsAck struct {
	Type string `json:"type"`
}

// Connect handles GET /api/v1/notifications/ws. The credential comes from
// the Authorization header or, when that is absent, from a first
// {"type":"auth","token":...} frame that must arrive within the handshake
// timeout. Tokens in the query string are not accepted; URIs leak into
// intermediary logs.
func (h *Handler) Connect(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("notification_websocket")

	var recipientID string
	if token, ok := auth.BearerToken(c); ok {
		id, err := h.validator.Verify(c.Request.Context(), token)
		if err != nil {
			errors.AbortWithUnauthorized(c, "Invalid or expired token")
			return
		}
		recipientID = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// No header credential: require the auth handshake frame before
	// anything else. The registry is never touched on failure.
	if recipientID == "" {
		recipientID, err = h.handshake(c, conn)
		if err != nil {
			log.Warn("websocket handshake rejected", slog.String("error", err.Error()))
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"),
				time.Now().Add(time.Second))
			conn.Close()
			return
		}
	}

	log = h.logger.WithComponent("notification_websocket")
	log.Info("websocket connection established", slog.String("recipient_id", recipientID))

	client := NewClient(recipientID, conn, h.opts.Client, h.logger)

	h.registry.Register(recipientID, client)
	defer func() {
		// Guarded by handle identity so a stale disconnect cannot evict a
		// newer connection from the same recipient.
		h.registry.Unregister(recipientID, client)
		client.Close()
	}()

	go client.WritePump()

	if ack, err := json.Marshal(wsAck{Type: "connected"}); err == nil {
		client.Enqueue(ack)
	}

	conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
		return nil
	})

	// The channel is receive-only for the client; reads exist to detect
	// disconnection and service control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Info("connection closed",
				slog.String("recipient_id", recipientID),
				slog.String("reason", err.Error()))
			return
		}
	}
}

// handshake reads and verifies the first-frame credential.
func (h *Handler) handshake(c *gin.Context, conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(h.opts.HandshakeTimeout))

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("no auth frame received: %w", err)
	}

	var frame authFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return "", fmt.Errorf("malformed auth frame: %w", err)
	}
	if frame.Type != "auth" || frame.Token == "" {
		return "", fmt.Errorf("first frame must carry the auth credential")
	}

	recipientID, err := h.validator.Verify(c.Request.Context(), frame.Token)
	if err != nil {
		return "", fmt.Errorf("credential rejected: %w", err)
	}

	return recipientID, nil
}
