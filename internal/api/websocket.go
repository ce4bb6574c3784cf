package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/robotctl/internal/auth"
	"github.com/nerrad567/robotctl/internal/infrastructure/config"
	"github.com/nerrad567/robotctl/internal/infrastructure/logging"
)

// Message types on the WebSocket.
const (
	WSTypeSubscribe = "subscribe"
	WSTypePing      = "ping"
	WSTypePong      = "pong"
	WSTypeEvent     = "event"
	WSTypeResponse  = "response"
	WSTypeError     = "error"

	// wsSendBufferSize is the per-client outbound queue length.
	wsSendBufferSize = 256
)

// WSMessage is the envelope of every frame the server writes.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels a subscribe frame asks for.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsRequest is a frame read from a client. The payload is decoded per type.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans call events out to subscribed WebSocket clients.
//
// Sends never block: a client whose queue is full misses the event. The
// hub lock is held for reading while sending and for writing while a
// client's queue is closed, so a send can never hit a closed queue.
type Hub struct {
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	closed  bool
}

// WSClient is one connected subscriber.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{}

	subject string
	role    auth.Role
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates an empty hub. Call Run to tie its lifetime to a context.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// Register adds a client. A client registered after shutdown is closed at once.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "subject", c.subject, "clients", n)
}

// Unregister removes a client and closes its queue. Repeated calls are no-ops.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("websocket client disconnected", "subject", c.subject, "clients", n)
	}
}

// Broadcast sends payload as an event on channel to every subscribed client.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "channel", channel, "error", err)
		return
	}

	var sent, skipped int
	h.mu.RLock()
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		if enqueue(c, data) {
			sent++
		} else {
			skipped++
		}
	}
	h.mu.RUnlock()

	if skipped > 0 {
		h.logger.Warn("websocket event skipped for slow clients", "channel", channel, "skipped", skipped)
	}
	if sent > 0 {
		h.logger.Debug("websocket event sent", "channel", channel, "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// reply queues a frame for c if it is still registered.
func (h *Hub) reply(c *WSClient, msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		enqueue(c, data)
	}
}

// enqueue is a non-blocking send. Callers hold the hub read lock.
func enqueue(c *WSClient, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// handleWebSocket authenticates the token query parameter and upgrades.
// Call events expose call history, so the role needs calls:read.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w, "token query parameter is required")
		return
	}
	claims, err := auth.ParseToken(token, s.secCfg.JWT.Secret)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}
	if !auth.HasPermission(claims.Role, auth.PermCallsRead) {
		writeForbidden(w, "role "+string(claims.Role)+" may not subscribe to call events")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		subject:       claims.Subject,
		role:          claims.Role,
	}
	s.hub.Register(c)

	go c.writeLoop(s.wsCfg)
	go c.readLoop(s.wsCfg)
}

// readLoop handles client frames until the connection fails.
func (c *WSClient) readLoop(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		// Application frames count as liveness too.
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handle(data)
	}
}

// writeLoop drains the send queue and pings on an interval.
func (c *WSClient) writeLoop(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error follows
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one client frame.
func (c *WSClient) handle(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.fail("", "invalid JSON message")
		return
	}

	switch req.Type {
	case WSTypeSubscribe:
		var sub WSSubscribePayload
		if err := json.Unmarshal(req.Payload, &sub); err != nil || len(sub.Channels) == 0 {
			c.fail(req.ID, "subscribe needs a non-empty channels list")
			return
		}
		c.mu.Lock()
		for _, ch := range sub.Channels {
			c.subscriptions[ch] = struct{}{}
		}
		c.mu.Unlock()

		c.hub.logger.Info("websocket client subscribed", "channels", sub.Channels, "subject", c.subject, "role", c.role)
		c.hub.reply(c, WSMessage{Type: WSTypeResponse, ID: req.ID, Payload: map[string]any{"subscribed": sub.Channels}})
	case WSTypePing:
		c.hub.reply(c, WSMessage{Type: WSTypePong, ID: req.ID})
	default:
		c.fail(req.ID, "unknown message type: "+req.Type)
	}
}

func (c *WSClient) fail(id, message string) {
	c.hub.reply(c, WSMessage{Type: WSTypeError, ID: id, Payload: map[string]string{"message": message}})
}

func (c *WSClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}
