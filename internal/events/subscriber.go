// Package events consumes domain events published by the content services
// and feeds them to the notification dispatcher. This is the ingress for
// "notify user X of event Y" triggers that originate outside this process.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/lumen-collective/lumenhub-api/internal/logger"
	"github.com/lumen-collective/lumenhub-api/internal/notification"
	"github.com/nats-io/nats.go"
)

const dispatchTimeout = 30 * time.Second

// Subscriber consumes notification events from NATS.
type Subscriber struct {
	conn       *nats.Conn
	sub        *nats.Subscription
	dispatcher *notification.Dispatcher
	logger     *logger.Logger
}

// NewSubscriber connects to NATS and subscribes to the notification event
// subject as part of a queue group, so replicas share the work.
func NewSubscriber(natsURL, subject, queueGroup string, dispatcher *notification.Dispatcher, log *logger.Logger) (*Subscriber, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("lumenhub-notification-dispatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	s := &Subscriber{
		conn:       conn,
		dispatcher: dispatcher,
		logger:     log.WithComponent("event_subscriber"),
	}

	sub, err := conn.QueueSubscribe(subject, queueGroup, s.handle)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.sub = sub

	s.logger.Info("subscribed to domain events",
		slog.String("subject", subject),
		slog.String("queue_group", queueGroup))

	return s, nil
}

// handle dispatches one event. Malformed or invalid events are logged and
// dropped; persistence failures are logged and the event is left to the
// publisher's redelivery policy.
func (s *Subscriber) handle(msg *nats.Msg) {
	var in notification.CreateInput
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		s.logger.Warn("dropping malformed event",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	n, err := s.dispatcher.Create(ctx, in)
	if err != nil {
		if isValidationError(err) {
			s.logger.Warn("dropping invalid event",
				slog.String("subject", msg.Subject),
				slog.String("recipient_id", in.Recipient),
				slog.String("error", err.Error()))
			return
		}
		s.logger.Error("failed to dispatch event",
			slog.String("subject", msg.Subject),
			slog.String("recipient_id", in.Recipient),
			slog.String("error", err.Error()))
		return
	}

	s.logger.Debug("event dispatched",
		slog.String("notification_id", n.ID),
		slog.String("recipient_id", n.Recipient))
}

func isValidationError(err error) bool {
	return errors.Is(err, notification.ErrEmptyRecipient) ||
		errors.Is(err, notification.ErrEmptyContent) ||
		errors.Is(err, notification.ErrInvalidType) ||
		errors.Is(err, notification.ErrInvalidRelatedItem)
}

// Close drains the subscription and closes the connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Drain()
	}
	s.conn.Close()
}
