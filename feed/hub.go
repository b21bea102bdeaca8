// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nezproject/edenqueue/models"
)

// ErrNotConnected is returned by Deliver when the traveler has no open
// feed connection. Callers treat this as a skip, not a failure.
var ErrNotConnected = errors.New("feed: user not connected")

// feedConn pairs a websocket connection with a write mutex. The
// websocket package allows at most one concurrent writer per
// connection, and Deliver is called from both handler goroutines and
// the scheduler.
type feedConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *feedConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Hub tracks open feed connections per traveler and pushes messages to
// them. A traveler may hold several connections at once (multiple tabs);
// Deliver writes to all of them.
type Hub struct {
	mu       sync.Mutex
	conns    map[int64]map[*feedConn]bool
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[int64]map[*feedConn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler handles GET /ws/feed?user_id=N and keeps the connection open
// until the client goes away.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("feed upgrade failed", "error", err)
		return
	}

	fc := &feedConn{ws: conn}
	h.add(userID, fc)
	slog.Info("feed connected", "user_id", userID)

	defer func() {
		h.remove(userID, fc)
		conn.Close()
		slog.Info("feed disconnected", "user_id", userID)
	}()

	// Drain client frames so pings and close frames are processed;
	// the feed is push-only and inbound payloads are discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Deliver sends a feed message to every open connection of the given
// traveler. Connections that fail to write are dropped.
func (h *Hub) Deliver(userID int64, msg models.FeedMessage) error {
	h.mu.Lock()
	set := h.conns[userID]
	targets := make([]*feedConn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return ErrNotConnected
	}

	delivered := false
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			slog.Warn("feed write failed", "user_id", userID, "error", err)
			h.remove(userID, c)
			c.ws.Close()
			continue
		}
		delivered = true
	}
	if !delivered {
		return ErrNotConnected
	}
	return nil
}

// Connected reports whether the traveler has at least one open feed
// connection.
func (h *Hub) Connected(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID]) > 0
}

func (h *Hub) add(userID int64, c *feedConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*feedConn]bool)
	}
	h.conns[userID][c] = true
}

func (h *Hub) remove(userID int64, c *feedConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.conns[userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}
