package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/events"
	"github.com/nikhil/chapterhub/internal/logger"
)

func connected(h *Hub, teamMemberID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members[teamMemberID]) > 0
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(logger.Nop())
	go h.Run(ctx)
	return h
}

func TestSendToMembersOverWebsocket(t *testing.T) {
	h := startHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := h.NewClient(conn, r.URL.Query().Get("member"))
		if !h.Attach(c) {
			conn.Close()
			return
		}
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?member=tm-a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return connected(h, "tm-a") }, time.Second, 10*time.Millisecond)

	sent := h.SendToMembers([]string{"tm-a", "tm-b"}, Envelope{
		Type:      events.MessageCreated,
		ChannelID: "ch-1",
		Payload:   map[string]string{"content": "hello"},
	})
	assert.Equal(t, 1, sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type      string            `json:"type"`
		ChannelID string            `json:"channel_id"`
		Payload   map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &got))
	assert.Equal(t, events.MessageCreated, got.Type)
	assert.Equal(t, "ch-1", got.ChannelID)
	assert.Equal(t, "hello", got.Payload["content"])
}

func TestSlowClientIsDropped(t *testing.T) {
	h := startHub(t)
	c := h.NewClient(nil, "tm-slow")
	require.True(t, h.Attach(c))
	require.Eventually(t, func() bool { return connected(h, "tm-slow") }, time.Second, 10*time.Millisecond)

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, h.SendToMembers([]string{"tm-slow"}, Envelope{Type: events.MessageCreated}))
	}
	assert.Equal(t, 0, h.SendToMembers([]string{"tm-slow"}, Envelope{Type: events.MessageCreated}))
	assert.False(t, connected(h, "tm-slow"))

	// send channel is closed once drained
	n := 0
	for range c.Send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestAttachAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(logger.Nop())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, h.Attach(h.NewClient(nil, "tm-late")))
}
