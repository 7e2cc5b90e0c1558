package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
	"github.com/lingopal/server/internal/config"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB, base64 audio frames included
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The relay is fronted by the app's own pages only.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub tracks active transcription clients and owns the shared, read-only
// session configuration.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	recognizer repositories.Recognizer
	cfg        config.Config
	logger     *zap.Logger
}

// NewHub creates a hub. recognizer may be nil when no provider credential
// is configured; sessions then reject start requests with an error event.
func NewHub(recognizer repositories.Recognizer, cfg config.Config, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		recognizer: recognizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.session.ID()] = client
			h.mu.Unlock()
			h.logger.Info("Client connected", zap.String("sessionID", client.session.ID()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.session.ID()]; ok {
				delete(h.clients, client.session.ID())
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client disconnected", zap.String("sessionID", client.session.ID()))
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is the middleman between one websocket connection and its session.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	session *Session
	logger  *zap.Logger
}

// HandleWebSocket upgrades the request and wires a new session to the
// connection.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger,
	}

	client.session = NewSession(SessionConfig{
		Recognizer:      hub.recognizer,
		DefaultLanguage: hub.cfg.DefaultLanguage,
		SampleRate:      hub.cfg.SampleRate,
		Channels:        hub.cfg.Channels,
		Encoding:        hub.cfg.Encoding,
		EndpointMs:      hub.cfg.EndpointMs,
		GracePeriod:     hub.cfg.StopGracePeriod,
		Send:            client.sendEvent,
		Logger:          logger,
	})

	client.hub.register <- client

	go client.session.Run()
	go client.writePump()
	go client.readPump()

	return nil
}

// sendEvent queues one event for the client, dropping it if the outbound
// buffer is full or the channel already closed.
func (c *Client) sendEvent(msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal server message", zap.Error(err))
		return
	}
	defer func() {
		// send may be closed concurrently by the hub on unregister.
		if r := recover(); r != nil {
			c.logger.Debug("Dropped event for closed client")
		}
	}()
	select {
	case c.send <- payload:
	default:
		c.logger.Warn("Outbound buffer full, dropping event",
			zap.String("type", msg.Type))
	}
}

// readPump pumps control messages from the websocket into the session.
// Its deferred cleanup is the session's guaranteed teardown path.
func (c *Client) readPump() {
	defer func() {
		c.session.Close()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.session.HandleControl(message)
		default:
			c.logger.Warn("Ignoring non-text message", zap.Int("type", messageType))
		}
	}
}

// writePump pumps queued events to the websocket connection.
func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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
