package notification

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

var (
	// ErrClientClosed is returned by Enqueue after the client has been closed.
	ErrClientClosed = errors.New("client connection closed")
	// ErrSendBufferFull is returned by Enqueue when the outbound queue is full.
	// A consumer this far behind is cut off and recovers via the list endpoint.
	ErrSendBufferFull = errors.New("outbound buffer full")
)

// ClientOptions tunes the per-connection outbound path.
type ClientOptions struct {
	// BufferSize caps the outbound queue so a slow consumer cannot grow
	// memory without bound.
	BufferSize   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// DefaultClientOptions returns the options used when none are configured.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BufferSize:   16,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Client wraps one live websocket connection with a bounded outbound queue.
// All writes go through the write pump so the connection never sees
// concurrent writers.
type Client struct {
	recipientID string
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	opts        ClientOptions
	logger      *logger.Logger
}

// NewClient creates a client for an upgraded connection. The caller must
// start WritePump in its own goroutine.
func NewClient(recipientID string, conn *websocket.Conn, opts ClientOptions, log *logger.Logger) *Client {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultClientOptions().BufferSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultClientOptions().WriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultClientOptions().PingInterval
	}

	return &Client{
		recipientID: recipientID,
		conn:        conn,
		send:        make(chan []byte, opts.BufferSize),
		done:        make(chan struct{}),
		opts:        opts,
		logger:      log.WithComponent("ws_client"),
	}
}

// RecipientID returns the identity this connection was authenticated as.
func (c *Client) RecipientID() string {
	return c.recipientID
}

// Enqueue queues a frame for delivery without blocking. It fails when the
// client is closed or the buffer is full; the caller decides what to count
// and whether to cut the connection.
func (c *Client) Enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close shuts the client down. Safe to call from any goroutine and more
// than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done is closed when the client has been shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WritePump drains the outbound queue onto the connection and keeps the
// connection alive with periodic pings. Each write gets a bounded deadline
// so an unresponsive peer cannot stall the pump. Runs until the client is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn("push write failed",
					slog.String("recipient_id", c.recipientID),
					slog.String("error", err.Error()))
				pushFailuresTotal.WithLabelValues("write_error").Inc()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed, closing connection",
					slog.String("recipient_id", c.recipientID),
					slog.String("error", err.Error()))
				return
			}

		case <-c.done:
			return
		}
	}
}
