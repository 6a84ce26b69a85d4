package sse

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/render"
)

// Hub fans messages out to the subscribers of each session code
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[chan Message]struct{}
	// latest is the last session version published per code
	latest  map[string]int64
	logger  *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[chan Message]struct{}),
		latest:  make(map[string]int64),
		logger:  logger,
	}
}

// Subscribe registers a new client for code. The returned cancel func must be
// called once the client goes away.
func (h *Hub) Subscribe(code string) (<-chan Message, func()) {
	ch := make(chan Message, BufferSize)

	h.mu.Lock()
	set, ok := h.clients[code]
	if !ok {
		set = make(map[chan Message]struct{})
		h.clients[code] = set
	}
	set[ch] = struct{}{}
	count := len(set)
	h.mu.Unlock()

	h.logger.Debug("sse client added", "code", code, "clients", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients[code], ch)
			remaining := len(h.clients[code])
			if remaining == 0 {
				delete(h.clients, code)
				delete(h.latest, code)
			}
			h.mu.Unlock()
			h.logger.Debug("sse client removed", "code", code, "clients", remaining)
		})
	}
}

// Subscribers returns how many clients listen on code
func (h *Hub) Subscribers(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[code])
}

// Publish sends a message to all subscribers of code
func (h *Hub) Publish(code, event, data string) {
	h.mu.RLock()
	// Collect all client channels while holding the lock
	clients := make([]chan Message, 0, len(h.clients[code]))
	for ch := range h.clients[code] {
		clients = append(clients, ch)
	}
	h.mu.RUnlock()

	// Send messages WITHOUT holding the lock
	msg := Message{Event: event, Data: data}
	sent := 0
	for _, ch := range clients {
		select {
		case ch <- msg:
			sent++
		case <-time.After(SendTimeout):
			h.logger.Debug("sse send timed out", "code", code, "event", event)
		}
	}
	h.logger.Debug("sse broadcast", "code", code, "event", event, "sent", sent, "clients", len(clients))
}

// SessionChanged publishes the public view of s to its subscribers. Versions
// older than one already published are dropped, since changes may be reported
// out of order.
func (h *Hub) SessionChanged(_ context.Context, s *models.Session) {
	h.mu.Lock()
	if len(h.clients[s.Code]) == 0 {
		h.mu.Unlock()
		return
	}
	if last, seen := h.latest[s.Code]; seen && s.Version < last {
		h.mu.Unlock()
		h.logger.Debug("sse dropped stale update", "code", s.Code, "version", s.Version, "latest", last)
		return
	}
	h.latest[s.Code] = s.Version
	h.mu.Unlock()

	data, err := json.Marshal(render.PublicView(s))
	if err != nil {
		h.logger.Error("encode session update", "code", s.Code, "error", err)
		return
	}
	h.Publish(s.Code, EventSessionUpdate, string(data))
}
