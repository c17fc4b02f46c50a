package server

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// WebsocketMessage represents a message sent to WebSocket clients.
type WebsocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// SendErrorResponse sends an error response to a WebSocket connection.
func SendErrorResponse(conn *websocket.Conn, responseType string, errMsg string) error {
	return conn.WriteJSON(map[string]interface{}{
		"type": responseType,
		"payload": map[string]interface{}{
			"success": false,
			"error":   errMsg,
		},
	})
}

// ClientManager manages WebSocket client connections and broadcasting.
type ClientManager struct {
	clients map[*websocket.Conn]string // conn -> clientID
	mu      sync.RWMutex
}

// NewClientManager creates a new ClientManager instance.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[*websocket.Conn]string),
	}
}

// Register adds a new client connection.
func (cm *ClientManager) Register(conn *websocket.Conn, clientID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[conn] = clientID
}

// Unregister removes a client connection.
func (cm *ClientManager) Unregister(conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, conn)
}

// Count returns the number of connected clients.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// CloseAll closes all client connections.
func (cm *ClientManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for client := range cm.clients {
		client.Close()
		delete(cm.clients, client)
	}
}

// Broadcast sends a message to all connected clients. Clients whose
// write fails are closed and dropped from the pool.
func (cm *ClientManager) Broadcast(message WebsocketMessage) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for client := range cm.clients {
		err := client.WriteJSON(message)
		if err != nil {
			log.Printf("WebSocket write error: %v", err)
			client.Close()
			delete(cm.clients, client)
		}
	}
}
