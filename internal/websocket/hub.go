// Package websocket keeps the teacher's Hub/Client pair (internal/websocket
// in Traxin77-Iot-gateway) and adapts its role: instead of broadcasting
// every ingested reading to a browser dashboard, the Hub now serves as
// one notification sink for the Alert Dispatcher (an on-call/ops live
// feed), per spec.md §4.4's "Model each sink as a value implementing the
// capability set {publish(alert) -> outcome, name()}".
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of active clients and broadcasts alert messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub builds an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run drives the Hub's register/unregister/broadcast loop. It is
// launched once, in its own goroutine, from cmd/gateway/main.go — same
// as the teacher's `go hub.Run()`.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.logger.Info("websocket sink client registered", slog.String("remote_addr", client.Conn.RemoteAddr().String()))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("websocket sink client unregistered", slog.String("remote_addr", client.Conn.RemoteAddr().String()))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("websocket sink client send buffer full, dropping", slog.String("remote_addr", client.Conn.RemoteAddr().String()))
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// RegisterClient safely registers a new client to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// ClientCount reports the number of connected sink subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAlert sends an alert payload to every connected subscriber.
// It never blocks the caller on a slow client (see the broadcast loop's
// non-blocking send above), and a websocket sink with zero connected
// subscribers is a no-op, not a failure. The only error it returns is a
// failure to marshal alert to JSON.
func (h *Hub) BroadcastAlert(alert interface{}) error {
	messageBytes, err := json.Marshal(map[string]interface{}{"type": "alert", "payload": alert})
	if err != nil {
		return err
	}
	h.broadcast <- messageBytes
	return nil
}
