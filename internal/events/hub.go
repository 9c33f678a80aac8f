package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types published on the booking event feed.
const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingReturned  = "booking.returned"
	TypeSweepCompleted   = "sweep.completed"
)

// Event is one entry on the booking event feed.
type Event struct {
	Type             string    `json:"type"`
	BookingID        string    `json:"booking_id,omitempty"`
	VehicleID        string    `json:"vehicle_id,omitempty"`
	CustomerID       string    `json:"customer_id,omitempty"`
	Status           string    `json:"status,omitempty"`
	BookingsReturned int       `json:"bookings_returned,omitempty"`
	VehiclesFreed    int       `json:"vehicles_freed,omitempty"`
	At               time.Time `json:"at"`
}

const writeTimeout = 5 * time.Second

// Hub fans booking events out to connected WebSocket subscribers. Publishing
// never blocks on a slow client; a failed write drops the connection.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: map[*websocket.Conn]struct{}{},
		logger:  logger,
	}
}

// Register adds a subscriber connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("event subscriber connected", slog.Int("subscribers", count))
}

// Unregister removes a subscriber connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

// Publish sends an event to every subscriber. Connections whose write fails
// are dropped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("dropping dead event subscriber", slog.String("error", err.Error()))
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}
