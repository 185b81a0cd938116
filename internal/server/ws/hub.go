package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/server/middleware"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters. Origin checks are
// left to the CORS middleware and the bearer token.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// envelope is the JSON frame sent to clients.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client represents a single WebSocket connection of one user.
type client struct {
	id     string
	userID int64
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
}

// userMsg is a frame addressed to every connection of one user.
type userMsg struct {
	userID int64
	data   []byte
}

// Hub fans trade events from the event bus out to the websocket
// connections of the user who owns the traded container.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan userMsg
	register   chan *client
	unregister chan *client
	done       chan struct{}
	bus        domain.EventBus
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a new WebSocket hub fed by the given event bus.
func NewHub(bus domain.EventBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan userMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		bus:        bus,
		logger:     logger,
	}
}

// Run subscribes to the trades channel and runs the hub's event loop until
// ctx is cancelled. It handles client registration, unregistration, and
// per-user delivery.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	msgCh, err := h.bus.Subscribe(ctx, domain.TradesChannel)
	if err != nil {
		return fmt.Errorf("ws: subscribe %s: %w", domain.TradesChannel, err)
	}
	h.logger.Info("ws: subscribed to channel", slog.String("channel", domain.TradesChannel))
	go h.forward(ctx, msgCh)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.String("client_id", c.id),
				slog.Int64("user_id", c.userID),
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.userID != msg.userID {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("ws: dropping message for slow client",
						slog.String("client_id", c.id),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// forward decodes trade events from the bus and queues them for the owning
// user's connections.
func (h *Hub) forward(ctx context.Context, msgCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: channel subscription closed",
					slog.String("channel", domain.TradesChannel),
				)
				return
			}

			var evt domain.TradeEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				h.logger.Warn("ws: malformed trade event", slog.String("error", err.Error()))
				continue
			}
			frame, err := json.Marshal(envelope{Type: "trade", Payload: evt})
			if err != nil {
				continue
			}

			select {
			case h.broadcast <- userMsg{userID: evt.UserID, data: frame}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleWS upgrades an authenticated HTTP request to a WebSocket connection
// and registers the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		userID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	// Queued before registration so the hub never owns a channel this
	// goroutine still writes to. It reaches the wire only once registered.
	c.sendHello()
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump keeps the read side alive so pongs and close frames are
// processed. Client messages are ignored.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// sendHello tells the client which connection and user it is bound to.
func (c *client) sendHello() {
	msg, err := json.Marshal(envelope{
		Type: "connected",
		Payload: map[string]any{
			"client_id": c.id,
			"user_id":   c.userID,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// writePump pumps messages from the hub to the WebSocket connection as text
// frames and sends periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
