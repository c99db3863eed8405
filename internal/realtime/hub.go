package realtime

import (
	"encoding/json"
	"sort"
	"sync"
)

// Event is the envelope pushed to websocket subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const EventPresence = "presence.update"

type Hub struct {
	mu            sync.RWMutex
	clients       map[*Client]struct{}
	presence      map[string]int
	allowedOrigin string
}

type Client struct {
	ClientID string
	Send     chan []byte
}

func NewClient(clientID string) *Client {
	return &Client{ClientID: clientID, Send: make(chan []byte, 16)}
}

// NewHub accepts websocket upgrades from allowedOrigin or from the same host.
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		clients:       map[*Client]struct{}{},
		presence:      map[string]int{},
		allowedOrigin: allowedOrigin,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	h.presence[client.ClientID]++
	h.broadcastPresenceLocked()
}

// Unregister is safe to call more than once per client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if count := h.presence[client.ClientID]; count <= 1 {
		delete(h.presence, client.ClientID)
	} else {
		h.presence[client.ClientID] = count - 1
	}
	close(client.Send)
	h.broadcastPresenceLocked()
}

// Broadcast drops the event for subscribers whose buffer is full.
func (h *Hub) Broadcast(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.sendLocked(message)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastPresenceLocked() {
	clients := make([]string, 0, len(h.presence))
	for clientID := range h.presence {
		clients = append(clients, clientID)
	}
	sort.Strings(clients)
	message, err := json.Marshal(Event{Type: EventPresence, Data: map[string]any{"clients": clients}})
	if err != nil {
		return
	}
	h.sendLocked(message)
}

func (h *Hub) sendLocked(message []byte) {
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}
