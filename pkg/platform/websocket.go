package platform

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event is one entity-change notification pushed to websocket subscribers.
type Event struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entity_id,omitempty"`
	Time     time.Time `json:"time"`
}

const (
	// clientBuffer is the per-subscriber send queue. Subscribers that fall
	// this far behind are disconnected rather than allowed to block the
	// hub.
	clientBuffer = 64

	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Hub fans entity-change events out to websocket subscribers.
//
// Nothing on the request path blocks on hub state: Publish drops events when
// the inbox is full, and the subscriber registry is a mutex-guarded map, so
// handlers can subscribe and unsubscribe whether or not Run is dispatching.
// The stream is a notification channel, not a durable feed; clients needing
// complete history read the audit log.
type Hub struct {
	events chan Event
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a hub; call Run to start dispatching.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		events:  make(chan Event, 256),
		clients: map[*hubClient]struct{}{},
		logger:  logger,
	}
}

// Publish enqueues an event for broadcast. Drops the event when the hub is
// saturated.
func (h *Hub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	select {
	case h.events <- event:
	default:
		h.logger.Warn().Str("type", event.Type).Msg("event hub saturated, dropping event")
	}
}

// add subscribes a client. Returns false once the hub has shut down.
func (h *Hub) add(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// remove unsubscribes a client and closes its send queue. Safe to call for
// a client the hub already dropped.
func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// subscriberCount reports the number of connected subscribers.
func (h *Hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run dispatches events to subscribers until the context is canceled, then
// closes every subscriber and rejects new ones.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		h.mu.Lock()
		h.closed = true
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

// broadcast delivers one event, dropping subscribers whose queue is full.
func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Event stream is read-only public data; origin checks belong to the
	// deployment's reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and subscribes it to the event
// stream.
func (a *App) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan Event, clientBuffer)}
	if !a.hub.add(c) {
		_ = conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop(a.hub)
}

// writeLoop pushes events and pings to the peer.
func (c *hubClient) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound messages and detects disconnects.
func (c *hubClient) readLoop(hub *Hub) {
	defer func() {
		hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
