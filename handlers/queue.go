// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/rankcache"
)

// handlePattern matches valid traveler handles.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const neighborWindow = 2

type QueueHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	mirror *rankcache.Mirror
}

func NewQueueHandler(db *sql.DB, cfg cliparse.Config, mirror *rankcache.Mirror) *QueueHandler {
	return &QueueHandler{db: db, cfg: cfg, mirror: mirror}
}

// Register handles POST /register. First contact creates the traveler;
// repeat calls are idempotent and never change the handle (renames go
// through moderation).
func (h *QueueHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.UserID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}
	if !handlePattern.MatchString(req.Handle) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "handle must be 3-32 characters of letters, digits, _ or -")
		return
	}

	now := nowUnix()

	var existingHandle string
	err := h.db.QueryRow(`SELECT handle FROM users WHERE id = $1`, req.UserID).Scan(&existingHandle)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	isNew := err == sql.ErrNoRows
	handle := existingHandle
	if isNew {
		var taken bool
		err = h.db.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM users WHERE handle = $1)
		`, req.Handle).Scan(&taken)
		if err != nil {
			slog.Error("failed to check handle", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if taken {
			middleware.ErrorResponse(w, http.StatusConflict, "handle already in use")
			return
		}

		_, err = h.db.Exec(`
			INSERT INTO users (id, handle, points, created_at)
			VALUES ($1, $2, 0, $3)
		`, req.UserID, req.Handle, now)
		if err != nil {
			slog.Error("failed to insert user", "error", err, "user_id", req.UserID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
			return
		}
		handle = req.Handle
		refreshMirror(h.mirror, h.db, h.cfg)
		slog.Info("traveler registered", "user_id", req.UserID, "handle", handle)
	}

	ranking, err := loadRanking(h.db, h.cfg, now)
	if err != nil {
		slog.Error("failed to load ranking", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	pos, total := queuePosition(ranking, req.UserID)

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, models.RegisterResponse{
		Handle:   handle,
		Position: pos,
		Total:    total,
		IsNew:    isNew,
	})
}

// Status handles GET /status: the position card.
func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := loadUser(h.db, userID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "not registered")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	ranking, err := loadRanking(h.db, h.cfg, nowUnix())
	if err != nil {
		slog.Error("failed to load ranking", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	pos, total := queuePosition(ranking, userID)
	above, below := queueNeighbors(ranking, userID, neighborWindow)

	resp := models.StatusResponse{
		Handle:      u.Handle,
		Points:      u.Points,
		Position:    pos,
		Total:       total,
		AccessLevel: accessLevel(pos, total),
		Registered:  humanize.Time(time.Unix(u.CreatedAt, 0)),
		Above:       neighborEntries(above),
		Below:       neighborEntries(below),
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Leaderboard handles GET /leaderboard?limit=
func (h *QueueHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		limit = n
	}

	ranking, err := loadRanking(h.db, h.cfg, nowUnix())
	if err != nil {
		slog.Error("failed to load ranking", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	entries := []models.LeaderboardEntry{}
	for i, u := range ranking {
		if i >= limit {
			break
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:   i + 1,
			Handle: u.Handle,
			Points: u.Points,
		})
	}

	middleware.JSONResponse(w, http.StatusOK, models.LeaderboardResponse{
		Entries: entries,
		Total:   len(ranking),
	})
}

func loadUser(db *sql.DB, userID int64) (models.User, error) {
	var u models.User
	err := db.QueryRow(`
		SELECT id, handle, points, created_at FROM users WHERE id = $1
	`, userID).Scan(&u.ID, &u.Handle, &u.Points, &u.CreatedAt)
	return u, err
}

func neighborEntries(users []RankedUser) []models.NeighborEntry {
	out := []models.NeighborEntry{}
	for _, u := range users {
		out = append(out, models.NeighborEntry{Handle: u.Handle, Points: u.Points})
	}
	return out
}
