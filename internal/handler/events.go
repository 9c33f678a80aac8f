package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/events"
	"github.com/yourorg/rentwheels/internal/security"
	"github.com/yourorg/rentwheels/internal/security/auth"
)

// EventsHandler upgrades /ws/events connections and subscribes them to the
// booking event feed. Browsers cannot set headers on WebSocket dials, so the
// token travels as a query parameter.
type EventsHandler struct {
	hub            *events.Hub
	tokens         *auth.TokenManager
	authz          *security.AuthorizationService
	logger         *slog.Logger
	allowedOrigins []string
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(
	hub *events.Hub,
	tokens *auth.TokenManager,
	authz *security.AuthorizationService,
	allowedOrigins []string,
	logger *slog.Logger,
) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &EventsHandler{
		hub:            hub,
		tokens:         tokens,
		authz:          authz,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is built per-request to use the instance's allowed origins.
func (h *EventsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if !h.authz.HasPermission(domain.Role(claims.Role), security.PermSubscribeEvents) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.hub.Register(ws)
	h.logger.Info("event subscriber connected", slog.String("user_id", claims.UserID))

	// Reads only drain control frames; the hub owns all writes. Read failure
	// means the peer is gone.
	go func() {
		defer h.hub.Unregister(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
