package notification

import (
	"log/slog"
	"sync"

	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

// Handle is the live transport for one recipient. Enqueue must not block;
// it reports failure when the frame cannot be accepted.
type Handle interface {
	Enqueue(frame []byte) error
	Close()
}

// Registry is the authoritative mapping of recipient identity to at most one
// live handle. It is the only shared mutable state touched from multiple
// connection goroutines plus the dispatcher's read path.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
	logger  *logger.Logger
}

// NewRegistry creates an empty registry. One instance is constructed per
// server lifetime and injected into connection handlers.
func NewRegistry(logger *logger.Logger) *Registry {
	return &Registry{
		handles: make(map[string]Handle),
		logger:  logger.WithComponent("connection_registry"),
	}
}

// Register stores the handle for a recipient, replacing any prior handle.
// Last connect wins; the superseded handle is dropped from the map but not
// closed here, its own connection goroutine tears it down.
func (r *Registry) Register(recipientID string, h Handle) {
	r.mu.Lock()
	prev := r.handles[recipientID]
	r.handles[recipientID] = h
	total := len(r.handles)
	r.mu.Unlock()

	liveConnections.Set(float64(total))
	r.logger.Debug("connection registered",
		slog.String("recipient_id", recipientID),
		slog.Bool("superseded_previous", prev != nil),
		slog.Int("live_connections", total))
}

// Unregister removes the mapping only if the stored handle is identical to h.
// This guards against a disconnect of an already-superseded connection
// evicting the newer one.
func (r *Registry) Unregister(recipientID string, h Handle) {
	r.mu.Lock()
	current, ok := r.handles[recipientID]
	if ok && current == h {
		delete(r.handles, recipientID)
	}
	total := len(r.handles)
	r.mu.Unlock()

	liveConnections.Set(float64(total))
	if ok && current == h {
		r.logger.Debug("connection unregistered",
			slog.String("recipient_id", recipientID),
			slog.Int("live_connections", total))
	}
}

// Lookup returns the live handle for a recipient. Absence is not an error,
// it means the recipient currently has no live channel.
func (r *Registry) Lookup(recipientID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[recipientID]
	return h, ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handles)
}

// CloseAll closes every registered handle. Used during server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.handles = make(map[string]Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}
