// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nezproject/edenqueue/auth"
	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/rankcache"
)

// Notifier delivers messages to travelers through the external messaging
// channel. Delivery failure is never fatal to the calling operation.
type Notifier interface {
	Deliver(userID int64, msg models.FeedMessage) error
}

func nowUnix() int64 {
	return time.Now().Unix()
}

// requestUserID reads the opaque traveler id from the X-User-ID header.
func requestUserID(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requireUser writes the error response on failure.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := requestUserID(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-User-ID header required")
	}
	return id, ok
}

// requireModerator validates the X-Moderator-Key header.
func requireModerator(w http.ResponseWriter, r *http.Request, cfg cliparse.Config) bool {
	key := r.Header.Get("X-Moderator-Key")
	if err := auth.ValidateModeratorKey(key, cfg.ModeratorKey); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "invalid moderator key")
		return false
	}
	return true
}

// applyReward adds points to the user's raw total and feeds the same
// amount into the decaying activity score. Returns the new point total.
func applyReward(db *sql.DB, cfg cliparse.Config, userID int64, reward int, now int64) (int, error) {
	_, err := db.Exec(`
		UPDATE users SET points = points + $1 WHERE id = $2
	`, reward, userID)
	if err != nil {
		return 0, err
	}

	if err := recordActivity(db, userID, float64(reward), now, cfg.HalfLifeSeconds()); err != nil {
		return 0, err
	}

	var points int
	err = db.QueryRow(`SELECT points FROM users WHERE id = $1`, userID).Scan(&points)
	if err != nil {
		return 0, err
	}
	return points, nil
}

// refreshMirror rebuilds the Redis leaderboard mirror after a
// point-changing event. Best-effort: failures are logged, never surfaced.
func refreshMirror(mirror *rankcache.Mirror, db *sql.DB, cfg cliparse.Config) {
	if mirror == nil {
		return
	}

	ranking, err := loadRanking(db, cfg, nowUnix())
	if err != nil {
		slog.Warn("mirror refresh: ranking failed", "error", err)
		return
	}

	entries := make([]rankcache.Entry, len(ranking))
	for i, u := range ranking {
		entries[i] = rankcache.Entry{UserID: u.ID, Handle: u.Handle, Rank: i + 1, Points: u.Points}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := mirror.Rebuild(ctx, entries); err != nil {
		slog.Warn("mirror refresh failed", "error", err)
	}
}

// deliver pushes a feed message, logging and swallowing failures.
// Returns whether the message went out.
func deliver(n Notifier, userID int64, msg models.FeedMessage) bool {
	if n == nil {
		return false
	}
	if err := n.Deliver(userID, msg); err != nil {
		slog.Warn("feed delivery failed", "user_id", userID, "type", msg.Type, "error", err)
		return false
	}
	return true
}
