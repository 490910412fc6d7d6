package websocket

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// Hub maintains the set of active clients and broadcasts messages to
// them. A slow client that cannot keep up with the broadcast rate is
// disconnected rather than allowed to block the rest.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger

	mu    sync.RWMutex
	stats HubStats
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run handles client registration, unregistration and broadcasting
// until the process exits. Intended to run in its own goroutine.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

// BroadcastAlert pushes an alert to every connected client.
func (h *Hub) BroadcastAlert(alert alerting.Alert) {
	h.BroadcastToAll(Message{Type: MessageTypeAlert, Payload: alert})
}

// BroadcastToAll queues a message for every connected client. When the
// broadcast buffer is full the message is dropped with a warning; the
// store remains the source of truth.
func (h *Hub) BroadcastToAll(message Message) {
	select {
	case h.broadcast <- message.ToJSON():
	default:
		h.logger.Warn("Broadcast channel is full, message dropped")
	}
}

// Stats returns a copy of the hub statistics.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"client_id":   client.ID,
		"remote_addr": client.RemoteAddr,
	}).Info("WebSocket client connected")

	welcome := Message{
		Type: MessageTypeConnection,
		Payload: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
		},
	}
	client.send <- welcome.ToJSON()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()
	}
	h.mu.Unlock()

	if ok {
		h.logger.WithField("client_id", client.ID).Info("WebSocket client disconnected")
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.mu.Lock()
	h.stats.MessagesSent++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			// Slow client: drop it inline. Sending on h.unregister here
			// would deadlock, since this goroutine is its only receiver.
			h.dropClient(client)
		}
	}
}

// dropClient removes a client whose send buffer is full. Safe against
// a later unregister from the client's readPump: unregisterClient
// skips clients already removed.
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()
	}
	h.mu.Unlock()

	if ok {
		h.logger.WithField("client_id", client.ID).Warn("WebSocket client dropped, send buffer full")
	}
}

func (h *Hub) sendHeartbeat() {
	h.mu.RLock()
	connected := len(h.clients)
	h.mu.RUnlock()
	if connected == 0 {
		return
	}

	h.BroadcastToAll(Message{
		Type:    MessageTypeHeartbeat,
		Payload: map[string]interface{}{"clients": connected},
	})
}
