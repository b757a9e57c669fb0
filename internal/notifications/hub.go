package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// maxFeedConns caps concurrent live feed connections.
const maxFeedConns = 10000

// ErrFeedFull is returned when the hub is at capacity.
var ErrFeedFull = errors.New("feed connection limit reached")

// FeedHub fans post events out to every connected feed client.
type FeedHub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
	stopOnce sync.Once
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxFeedConns,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *FeedHub) Name() string { return "feed hub" }

// Register adds a connection to the hub.
func (h *FeedHub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.clients) >= h.maxConns {
		return nil, ErrFeedFull
	}

	client := NewClient(h, conn)
	h.clients[client] = struct{}{}
	observability.FeedConnections.Inc()
	return client, nil
}

// UnregisterClient removes a client and closes its send queue. It is safe to call more than once.
func (h *FeedHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.FeedConnections.Dec()
}

// Count returns the number of connected clients.
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client without blocking.
func (h *FeedHub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.clients {
		c.TrySend(data)
	}
}

// StartWiring connects the Notifier to this hub: Redis messages on the post
// events channel are broadcast to all clients. Without Redis the notifier
// delivers directly to the hub.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	if !n.Distributed() {
		n.setLocalSink(h.BroadcastAll)
		return nil
	}
	return n.StartPostSubscriber(ctx, h.BroadcastAll)
}

// Shutdown closes every client's send queue. Each WritePump then writes the
// going-away close frame itself, so the connection keeps a single writer.
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true

		for client := range h.clients {
			client.closeReason = websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
			close(client.Send)
			observability.FeedConnections.Dec()
		}
		middleware.Logger.Debug("feed hub stopped", slog.Int("clients", len(h.clients)))
		h.clients = make(map[*Client]struct{})
	})
	return nil
}
