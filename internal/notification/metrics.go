package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumenhub_live_connections",
		Help: "Number of currently registered live notification connections.",
	})

	pushesEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumenhub_notification_pushes_enqueued_total",
		Help: "Notifications handed to a live connection's outbound queue.",
	})

	pushFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumenhub_notification_push_failures_total",
		Help: "Best-effort pushes that failed, by reason.",
	}, []string{"reason"})

	notificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumenhub_notifications_created_total",
		Help: "Durable notification records created, by type.",
	}, []string{"type"})
)
