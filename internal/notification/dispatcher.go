package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

// Dispatcher is the only way a notification record may be created. It
// persists the record first and then attempts a best-effort push to the
// recipient's live connection, if any.
type Dispatcher struct {
	store    Store
	registry *Registry
	logger   *logger.Logger
}

// NewDispatcher creates a dispatcher over the given store and registry.
func NewDispatcher(store Store, registry *Registry, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		registry: registry,
		logger:   log.WithComponent("delivery_dispatcher"),
	}
}

// Create validates the input, persists the record, and pushes it to the
// recipient when a live connection exists. Validation and persistence
// failures are returned to the caller; a failed push is logged only, since
// the durable record already exists and is retrievable through the list
// endpoint. After a successful return the record is durable regardless of
// delivery outcome.
func (d *Dispatcher) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	n := &Notification{
		ID:          uuid.New().String(),
		Recipient:   in.Recipient,
		Type:        in.Type,
		Content:     in.Content,
		Read:        false,
		RelatedItem: in.RelatedItem,
		CreatedAt:   time.Now().UTC(),
	}

	if err := d.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	notificationsCreatedTotal.WithLabelValues(string(n.Type)).Inc()

	d.push(ctx, n)

	return n, nil
}

// push attempts delivery over the recipient's live connection. An offline
// recipient is not an error; a failed enqueue is counted and logged, never
// surfaced.
func (d *Dispatcher) push(ctx context.Context, n *Notification) {
	handle, ok := d.registry.Lookup(n.Recipient)
	if !ok {
		return
	}

	frame, err := json.Marshal(Event{Type: EventTypeNotification, Data: *n})
	if err != nil {
		d.logger.LogError(ctx, err, "failed to marshal push frame",
			slog.String("notification_id", n.ID))
		pushFailuresTotal.WithLabelValues("marshal_error").Inc()
		return
	}

	if err := handle.Enqueue(frame); err != nil {
		d.logger.WithContext(ctx).Warn("push delivery failed",
			slog.String("notification_id", n.ID),
			slog.String("recipient_id", n.Recipient),
			slog.String("error", err.Error()))

		switch err {
		case ErrSendBufferFull:
			pushFailuresTotal.WithLabelValues("buffer_full").Inc()
			// A consumer this far behind will not catch up; cut the
			// connection so the client reconnects and re-syncs via the
			// list endpoint.
			handle.Close()
		case ErrClientClosed:
			pushFailuresTotal.WithLabelValues("closed").Inc()
		default:
			pushFailuresTotal.WithLabelValues("enqueue_error").Inc()
		}
		return
	}

	pushesEnqueuedTotal.Inc()
	d.logger.WithContext(ctx).Debug("notification pushed",
		slog.String("notification_id", n.ID),
		slog.String("recipient_id", n.Recipient),
		slog.String("type", string(n.Type)))
}
