package realtime

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, userID)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialHub(t, hub, "u1")

	// Registration races the dial; keep sending until the frame arrives.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 40; i++ {
			hub.SendToUser("u1", Envelope{ID: "n1", Type: "notification"})
			select {
			case <-done:
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	close(done)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.ID != "n1" || envelope.Type != "notification" {
		t.Errorf("got envelope %+v", envelope)
	}
}

// A client whose send buffer overflows is disconnected so it reconnects and
// resyncs, instead of lingering while frames are silently dropped.
func TestHubDisconnectsOverflowedClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var serverConn *websocket.Conn
	connected := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConn = conn
		close(connected)
	}))
	defer server.Close()

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer clientConn.Close()
	<-connected

	// Registered with no write loop draining it, so the buffer fills.
	client := &Client{
		conn:   serverConn,
		userID: "u1",
		send:   make(chan []byte, clientSendBuffer),
		hub:    hub,
	}
	hub.register <- client

	for i := 0; i < clientSendBuffer+1; i++ {
		hub.SendToUser("u1", Envelope{Type: "notification"})
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := clientConn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("overflowed client was never disconnected")
		}
		return // connection was closed by the hub
	}
}
