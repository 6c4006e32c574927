// Package ws pushes till events to connected terminals over WebSocket.
package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is a single message broadcast to every connected terminal.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event, marshalling the payload. A payload that cannot
// be marshalled is dropped and the event goes out with its type only.
func NewEvent(eventType string, payload any) Event {
	if payload == nil {
		return Event{Type: eventType}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ws] WARN: failed to marshal %s payload: %v", eventType, err)
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Payload: raw}
}

// Hub maintains the set of connected clients and fans events out to all of
// them. The till is a single room: every terminal sees every event.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

// Run is the hub's main loop. Start it as a goroutine: go hub.Run().
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// The client's send buffer is full; close and drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an event for delivery to every connected terminal.
func (h *Hub) Broadcast(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] WARN: failed to marshal event %s: %v", event.Type, err)
		return
	}
	h.broadcast <- message
}

// ClientCount reports how many terminals are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
