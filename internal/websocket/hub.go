package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"districtpulse/pkg/contracts/domain"
)

// Event types pushed to dashboard clients.
const (
	TypeConnection      = "connection"
	TypeSnapshotRebuilt = "snapshot:rebuilt"
	TypeQualityAlert    = "quality:alert"
)

// Event is the JSON envelope every hub message travels in.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active clients and broadcasts events to them.
// It also satisfies the engine's Notifier interface so a completed
// ingestion cycle reaches connected dashboards immediately.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}

	logger *slog.Logger
}

// NewHub creates a new hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket_hub")),
	}
}

// Run processes register/unregister/broadcast events until the context is
// cancelled. Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.quit:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("clients", count))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down.
func (h *Hub) Stop() {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		close(h.quit)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent serializes and fans out one event.
func (h *Hub) BroadcastEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			slog.String("type", event.Type))
	}
}

// SnapshotRebuilt implements the engine Notifier interface.
func (h *Hub) SnapshotRebuilt(metrics domain.QualityMetrics, districts int) {
	h.BroadcastEvent(Event{
		Type:      TypeSnapshotRebuilt,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"districts": districts,
			"quality":   metrics,
		},
	})
}

// QualityAlert implements the engine Notifier interface.
func (h *Hub) QualityAlert(metrics domain.QualityMetrics) {
	h.BroadcastEvent(Event{
		Type:      TypeQualityAlert,
		Timestamp: time.Now().UTC(),
		Data:      metrics,
	})
}
