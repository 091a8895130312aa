package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"overlayserver/internal/dto"
	"overlayserver/internal/logger"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()
	hub := NewHubService(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, hub.GetClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubService_PublishReachesViewers(t *testing.T) {
	hub, srv := startHub(t)
	first := dial(t, srv)
	second := dial(t, srv)
	waitForClients(t, hub, 2)

	event := dto.NewEvent(dto.EventOverlayBound, dto.OverlayBound{Node: "1", Tag: 1, VideoURL: "v2"})
	if err := hub.Publish(event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}

		var got struct {
			Type string           `json:"type"`
			Data dto.OverlayBound `json:"data"`
		}
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("Invalid event JSON: %v", err)
		}
		if got.Type != dto.EventOverlayBound || got.Data.VideoURL != "v2" || got.Data.Node != "1" {
			t.Errorf("Unexpected event %+v", got)
		}
	}
}

func TestHubService_Unregister(t *testing.T) {
	hub, srv := startHub(t)
	dial(t, srv)
	waitForClients(t, hub, 1)

	for client := range snapshot(hub) {
		hub.Unregister(client)
	}
	waitForClients(t, hub, 0)
}

func TestHubService_BroadcastDoesNotBlock(t *testing.T) {
	hub := NewHubService(logger.NewNop())

	// Nothing drains the queue, so it fills up and further messages are dropped.
	for i := 0; i < broadcastBuffer; i++ {
		if !hub.Broadcast([]byte("frame")) {
			t.Fatalf("Message %d dropped before the queue was full", i)
		}
	}
	if hub.Broadcast([]byte("frame")) {
		t.Error("Expected a full queue to drop the message")
	}
	if err := hub.Publish(dto.NewEvent(dto.EventSessionStarted, nil)); err == nil {
		t.Error("Expected Publish to report the dropped event")
	}
}

func snapshot(h *HubService) map[*websocket.Conn]bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make(map[*websocket.Conn]bool, len(h.clients))
	for k, v := range h.clients {
		out[k] = v
	}
	return out
}
