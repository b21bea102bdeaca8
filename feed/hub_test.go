// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nezproject/edenqueue/models"
)

func dialFeed(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/feed?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial feed: %v", err)
	}
	return conn
}

func TestDeliverToConnectedUser(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/feed", hub.Handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialFeed(t, server, "42")
	defer conn.Close()

	// The handler registers the connection before reading, but give the
	// server goroutine a moment to get there.
	deadline := time.Now().Add(2 * time.Second)
	for !hub.Connected(42) {
		if time.Now().After(deadline) {
			t.Fatal("Connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Deliver(42, models.FeedMessage{Type: "anomaly", Text: "signal detected"}); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.FeedMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if msg.Type != "anomaly" || msg.Text != "signal detected" {
		t.Errorf("Unexpected message: %+v", msg)
	}
}

func TestDeliverFromConcurrentGoroutines(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/feed", hub.Handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialFeed(t, server, "7")
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !hub.Connected(7) {
		if time.Now().After(deadline) {
			t.Fatal("Connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The scheduler and HTTP handlers can both push to the same
	// connection at once; writes must be serialized.
	const perWriter = 20
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if err := hub.Deliver(7, models.FeedMessage{Type: "digest", Text: "tick"}); err != nil {
					t.Errorf("Deliver failed: %v", err)
				}
			}
		}()
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2*perWriter; i++ {
		var msg models.FeedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read message %d: %v", i, err)
		}
	}
	wg.Wait()
}

func TestDeliverToDisconnectedUser(t *testing.T) {
	hub := NewHub()
	err := hub.Deliver(7, models.FeedMessage{Type: "digest", Text: "hello"})
	if err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestHandlerRejectsMissingUserID(t *testing.T) {
	hub := NewHub()
	req := httptest.NewRequest("GET", "/ws/feed", nil)
	w := httptest.NewRecorder()
	hub.Handler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/feed", hub.Handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialFeed(t, server, "9")
	deadline := time.Now().Add(2 * time.Second)
	for !hub.Connected(9) {
		if time.Now().After(deadline) {
			t.Fatal("Connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Connected(9) {
		if time.Now().After(deadline) {
			t.Fatal("Connection never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
