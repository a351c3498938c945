// Package gateway serves the console UI over websockets: it broadcasts
// pipeline updates, signals and order events to connected clients and routes
// their chart/order commands back to the core.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"synthdesk/internal/auth"
)

// Hub manages websocket clients and fan-out. It keeps the latest payload per
// channel so a freshly connected client gets current state immediately.
type Hub struct {
	upgrader websocket.Upgrader

	// Checker validates login commands. Nil disables authentication and
	// grants every client the trader role.
	Checker auth.CredentialChecker

	// OnCommand receives each authenticated client command.
	OnCommand func(c *Client, cmd Command)

	// OnClientCount is called with the client total after connect/disconnect.
	OnClientCount func(n int)

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]json.RawMessage
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
		latest:  make(map[string]json.RawMessage),
	}
}

// Broadcast marshals v, caches it as the channel's latest payload and fans
// it out to every client. Slow clients drop the frame.
func (h *Hub) Broadcast(channel string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[gateway] marshal %s: %v", channel, err)
		return
	}
	env, err := json.Marshal(map[string]interface{}{
		"channel": channel,
		"data":    json.RawMessage(data),
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	h.latest[channel] = env
	for client := range h.clients {
		select {
		case client.send <- env:
		default:
		}
	}
	h.mu.Unlock()
}

// HandleWS upgrades an HTTP connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	if h.Checker == nil {
		client.session = auth.Session{User: "anonymous", Role: auth.RoleTrader}
		client.authed = true
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters a client and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Latest returns the cached payload for one channel, if any.
func (h *Hub) Latest(channel string) (json.RawMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	env, ok := h.latest[channel]
	return env, ok
}
