// Package hub fans order and call events out to every realtime
// subscriber of a store's channel and deduplicates redelivery on the
// receiving device.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

const (
	KindNewOrder = "NEW_ORDER"
	KindNewCall  = "NEW_CALL"
)

// Event is the transient notification published on a store channel. The
// EventID is derived from the underlying order/call id, so a redelivered
// event carries the same id.
type Event struct {
	EventID   string          `json:"event_id"`
	StoreID   string          `json:"store_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// EventID derives the deterministic id for an entity; events without an
// explicit id fall back to a kind+timestamp composite on the client side.
func EventID(kind, entityID string) string {
	return kind + ":" + entityID
}

type Client struct {
	ID      string
	StoreID string
	Send    chan []byte
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// Broadcast delivers event to every subscriber of the store's channel.
// Sends never block: a subscriber that cannot keep up drops the message
// and relies on its next list refresh.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.StoreID != event.StoreID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop event %s for client %s", event.EventID, client.ID)
		}
	}
}

func (h *Hub) SubscriberCount(storeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, client := range h.clients {
		if client.StoreID == storeID {
			count++
		}
	}
	return count
}
