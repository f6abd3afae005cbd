package main

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
)

// CallEvent is the union of call.scored and call.emergency messages.
type CallEvent struct {
	EventType         string   `json:"eventType"`
	CallID            string   `json:"callId"`
	Timestamp         int64    `json:"timestamp"`
	Transcript        string   `json:"transcript"`
	ConfidenceScore   float64  `json:"confidenceScore"`
	EmergencyDetected bool     `json:"emergencyDetected"`
	DurationSeconds   float64  `json:"durationSeconds,omitempty"`
	AudioFileName     string   `json:"audioFileName,omitempty"`
	STTProvider       string   `json:"sttProvider,omitempty"`
	Signals           *Signals `json:"signals,omitempty"`
}

// Signals mirrors the per-signal breakdown of a scored call.
type Signals struct {
	Base              float64 `json:"base"`
	Density           float64 `json:"density"`
	Keywords          float64 `json:"keywords"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	SilencePenalty    float64 `json:"silence_penalty"`
}

func decodeEvent(b []byte) (CallEvent, error) {
	var ev CallEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, err
	}
	if ev.EventType == "" || ev.CallID == "" {
		return ev, errors.New("event missing eventType or callId")
	}
	if ev.EventType == "call.emergency" {
		ev.EmergencyDetected = true
	}
	return ev, nil
}

// client is anything the hub can push JSON to.
type client interface {
	WriteJSON(v any) error
	Close() error
}

// Hub fans events out to connected browsers.
type Hub struct {
	clients    map[client]bool
	broadcast  chan CallEvent
	register   chan client
	unregister chan client
	done       <-chan struct{}
	mu         sync.Mutex
}

// newHub returns a hub that stops once done is closed.
func newHub(done <-chan struct{}) *Hub {
	return &Hub{
		done:       done,
		clients:    make(map[client]bool),
		broadcast:  make(chan CallEvent, 100),
		register:   make(chan client),
		unregister: make(chan client),
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				_ = c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected. Total: %d", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client disconnected. Total: %d", n)

		case event := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.WriteJSON(event); err != nil {
					log.Printf("Write error: %v", err)
					_ = c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join hands c to the hub. After shutdown c is closed instead.
func (h *Hub) join(c client) {
	select {
	case h.register <- c:
	case <-h.done:
		_ = c.Close()
	}
}

// leave removes c from the hub. After shutdown it returns at once.
func (h *Hub) leave(c client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
