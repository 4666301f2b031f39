// Package events broadcasts pipeline run lifecycle notifications to SSE
// subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	TypeRunStarted   = "run_started"
	TypeRunCompleted = "run_completed"
	TypeRunFailed    = "run_failed"
	TypeBatchLoaded  = "batch_loaded"
)

type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish fans an event out to every subscriber, dropping it for clients
// whose buffers are full.
func (h *Hub) Publish(typ string, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return
		}
		raw = b
	}
	b, err := json.Marshal(Event{Type: typ, At: time.Now().UTC(), Data: raw})
	if err != nil {
		return
	}
	msg := string(b)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// drop if slow
		}
	}
}
