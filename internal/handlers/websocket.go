package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/middleware"
	"github.com/nikhil/chapterhub/internal/realtime"
	"github.com/nikhil/chapterhub/internal/response"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket handler.
// An empty allowedOrigins accepts any origin.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		log: log.Named("websocket"),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// HandleWebSocket upgrades an authenticated request and attaches it to the hub
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.CurrentMember(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Upgrade the HTTP connection to a WebSocket connection
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithContext(r.Context()).Warn("Error upgrading connection", "error", err)
		return
	}

	client := h.hub.NewClient(conn, member.ID)
	if !h.hub.Attach(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
