// Package ws serves the live subscription endpoint: each WebSocket client
// gets a stats snapshot on connect and then every broadcast message as a JSON
// text frame.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/spreadscan/internal/broadcast"
	"github.com/alanyoungcy/spreadscan/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message. Clients
	// are not expected to send anything but control frames.
	maxMessageSize = 4096
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins, like the REST API's permissive CORS default.
		return true
	},
}

// StatsSource produces the snapshot sent to a client on connect.
type StatsSource interface {
	StatsMessage() domain.StatsMessage
}

// Hub bridges the broadcast hub to WebSocket clients.
type Hub struct {
	broadcast *broadcast.Hub
	stats     StatsSource
	logger    *slog.Logger
}

// NewHub creates a WebSocket endpoint backed by the given broadcast hub.
func NewHub(b *broadcast.Hub, stats StatsSource, logger *slog.Logger) *Hub {
	return &Hub{
		broadcast: b,
		stats:     stats,
		logger:    logger.With(slog.String("component", "ws")),
	}
}

// client is one WebSocket connection and its broadcast subscription.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	sub  *broadcast.Subscription
	// closed is signalled by readPump when the peer goes away.
	closed chan struct{}
}

// HandleWS upgrades the request and starts forwarding.
// GET /ws, GET /api/stats
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	// Subscribe before taking the snapshot so nothing published in between
	// is lost; the client may see one update it is already aware of, never a
	// gap.
	c := &client{
		hub:    h,
		conn:   conn,
		sub:    h.broadcast.Subscribe(),
		closed: make(chan struct{}),
	}

	h.logger.Info("ws: client connected",
		slog.String("remote", r.RemoteAddr),
		slog.Int("total_clients", h.broadcast.Subscribers()),
	)

	go c.writePump(h.stats.StatsMessage())
	go c.readPump()
}

// readPump drains the connection so control frames are processed and a
// client close is noticed.
func (c *client) readPump() {
	defer close(c.closed)

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
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump sends the initial snapshot, then forwards subscription messages
// and periodic pings until the client disconnects or the hub shuts down.
func (c *client) writePump(initial domain.StatsMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sub.Close()
		c.conn.Close()
		c.hub.logger.Info("ws: client disconnected",
			slog.Int64("dropped", c.sub.Dropped()),
			slog.Int("total_clients", c.hub.broadcast.Subscribers()),
		)
	}()

	if err := c.write(initial); err != nil {
		return
	}

	for {
		select {
		case msg, ok := <-c.sub.C():
			if !ok {
				// The broadcast hub closed.
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.write(msg); err != nil {
				c.hub.logger.Debug("ws: forward failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}

// write serialises msg as one text frame.
func (c *client) write(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", msg.Kind(), err)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSubscriberDisconnected, err)
	}
	return nil
}
