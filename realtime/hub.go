package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"campusfeed/monitoring"
	"campusfeed/utils"
)

const (
	clientSendBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Envelope is the wire frame pushed to clients. ID doubles as the
// idempotency key: delivery is at-least-once and the channel may redeliver
// after a reconnect.
type Envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	hub    *Hub
}

// Hub tracks connected websocket clients per user and pushes envelopes to
// them. Slow clients get dropped rather than blocking the fan-out.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.byUser[client.userID] == nil {
				h.byUser[client.userID] = make(map[*Client]bool)
			}
			h.byUser[client.userID][client] = true
			total := len(h.clients)
			h.mu.Unlock()
			monitoring.WebsocketClients.Set(float64(total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				delete(h.byUser[client.userID], client)
				if len(h.byUser[client.userID]) == 0 {
					delete(h.byUser, client.userID)
				}
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			monitoring.WebsocketClients.Set(float64(total))
		}
	}
}

// SendToUser delivers an envelope to every connection the user has open.
func (h *Hub) SendToUser(userID string, envelope Envelope) {
	if envelope.ID == "" {
		envelope.ID = uuid.NewString()
	}
	payload := utils.ToJson(envelope)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.byUser[userID] {
		select {
		case client.send <- payload:
		default:
			// Client cannot keep up. Closing the connection fails its read
			// loop, which unregisters it; the client reconnects and resyncs
			// rather than silently losing frames.
			client.conn.Close()
		}
	}
}

// Broadcast delivers an envelope to every connected client.
func (h *Hub) Broadcast(envelope Envelope) {
	if envelope.ID == "" {
		envelope.ID = uuid.NewString()
	}
	payload := utils.ToJson(envelope)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			client.conn.Close()
		}
	}
}

// ServeWS upgrades an HTTP request into a hub connection for the given user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading websocket: %v", err)
		return
	}

	client := &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, clientSendBuffer),
		hub:    h,
	}
	h.register <- client

	go client.writeLoop()
	go client.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
