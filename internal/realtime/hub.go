// Package realtime pushes channel activity to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhil/chapterhub/internal/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512

	sendBuffer = 256
)

// Envelope is the JSON frame written to clients
type Envelope struct {
	Type      string      `json:"type"`
	ChannelID string      `json:"channel_id"`
	Payload   interface{} `json:"payload"`
}

// Hub maintains the set of active clients, indexed by team member id
type Hub struct {
	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	mu      sync.RWMutex
	members map[string]map[*Client]struct{}

	// closed when Run returns
	done chan struct{}

	log *logger.Logger
}

// Client represents a WebSocket connection
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	TeamMemberID string
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		members:    make(map[string]map[*Client]struct{}),
		done:       make(chan struct{}),
		log:        log,
	}
}

// NewClient wraps conn for teamMemberID
func (h *Hub) NewClient(conn *websocket.Conn, teamMemberID string) *Client {
	return &Client{Hub: h, Conn: conn, Send: make(chan []byte, sendBuffer), TeamMemberID: teamMemberID}
}

// Run handles registrations until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			conns, ok := h.members[client.TeamMemberID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.members[client.TeamMemberID] = conns
			}
			conns[client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, conns := range h.members {
				for client := range conns {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove drops client and closes its send channel. Caller holds mu.
func (h *Hub) remove(client *Client) {
	conns, ok := h.members[client.TeamMemberID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(h.members, client.TeamMemberID)
	}
}

// Attach registers client, returning false once the hub has stopped
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// SendToMembers writes one event to every connection of the given team members.
// Clients whose buffer is full are disconnected. Returns how many connections were reached.
func (h *Hub) SendToMembers(teamMemberIDs []string, env Envelope) int {
	frame, err := json.Marshal(env)
	if err != nil {
		h.log.Error("Failed to encode realtime event", "type", env.Type, "error", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for _, id := range teamMemberIDs {
		for client := range h.members[id] {
			select {
			case client.Send <- frame:
				sent++
			default:
				h.log.Warn("Dropping slow websocket client", "team_member_id", id)
				h.remove(client)
			}
		}
	}
	return sent
}

// ReadPump drains the connection so control frames are processed.
// Inbound data frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug("Websocket closed unexpectedly", "team_member_id", c.TeamMemberID, "error", err)
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
