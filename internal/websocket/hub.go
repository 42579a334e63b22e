// Package websocket pushes session events to connected browser clients.
package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"

	"tubecast/internal/models"
	"tubecast/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event is the envelope every push uses on the wire.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans session events out to each user's websocket clients. One user
// may hold several clients (multiple tabs); events are delivered to all of
// them.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan *userMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *logger.Logger
}

type userMessage struct {
	userID  string
	payload []byte
}

// Client is one websocket connection owned by a user.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	hub    *Hub
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *userMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run pumps registrations and broadcasts until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("WebSocket client registered: %s (user %s)", client.ID, client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.log.Debug("WebSocket client unregistered: %s", client.ID)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *userMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID != msg.userID {
			continue
		}
		select {
		case client.Send <- msg.payload:
		default:
			// Slow consumer, drop rather than block the hub.
			h.log.Warn("WebSocket client %s send buffer full, dropping event", client.ID)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.log.Info("WebSocket hub shut down")
}

// SendToUser pushes an event to every client the user has open.
func (h *Hub) SendToUser(userID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode websocket event: %v", err)
		return
	}
	h.broadcast <- &userMessage{userID: userID, payload: payload}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// QRCode renders the pairing payload as a PNG and pushes it as a data URL,
// so the frontend can drop it straight into an <img>.
func (h *Hub) QRCode(userID, payload string) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		h.log.Error("Failed to render QR code for user %s: %v", userID, err)
		return
	}

	h.SendToUser(userID, Event{
		Type: "qr-code",
		Data: map[string]string{
			"qr": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		},
	})
}

func (h *Hub) ConnectionStatus(userID string, connected bool) {
	h.SendToUser(userID, Event{
		Type: "connection-status",
		Data: map[string]bool{"connected": connected},
	})
}

func (h *Hub) GroupsLoaded(userID string, groups []models.Group) {
	if groups == nil {
		groups = []models.Group{}
	}
	h.SendToUser(userID, Event{
		Type: "groups-loaded",
		Data: map[string]interface{}{"groups": groups},
	})
}

func (h *Hub) ConnectionError(userID, message string) {
	h.SendToUser(userID, Event{
		Type: "connection-error",
		Data: map[string]string{"error": message},
	})
}

// NewClient wraps an upgraded connection and registers it with the hub.
// The caller must start ReadPump and WritePump.
func (h *Hub) NewClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		hub:    h,
	}
	h.register <- client
	return client
}

// ReadPump drains inbound frames to keep pong handling alive. Inbound
// payloads are ignored; the socket is push-only.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket read error: %v", err)
			}
			return
		}
	}
}

// WritePump flushes queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
