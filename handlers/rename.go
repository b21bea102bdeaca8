// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nezproject/edenqueue/auth"
	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
)

// maxRenameAttempts is the lifetime rename quota per traveler. Attempts
// count at request time, approved or not.
const maxRenameAttempts = 3

type RenameHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewRenameHandler(db *sql.DB, cfg cliparse.Config) *RenameHandler {
	return &RenameHandler{db: db, cfg: cfg}
}

// RequestRename handles POST /rename. The new handle is reserved against
// both live handles and other pending requests before anything is
// created, so an in-use handle never produces a pending request.
func (h *RenameHandler) RequestRename(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.RenameRequestBody
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !handlePattern.MatchString(req.NewHandle) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "handle must be 3-32 characters of letters, digits, _ or -")
		return
	}

	var oldHandle string
	err := h.db.QueryRow(`SELECT handle FROM users WHERE id = $1`, userID).Scan(&oldHandle)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "not registered")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if oldHandle == req.NewHandle {
		middleware.ErrorResponse(w, http.StatusBadRequest, "new handle matches the current one")
		return
	}

	var used int
	err = h.db.QueryRow(`
		SELECT rename_attempts_used FROM user_limits WHERE user_id = $1
	`, userID).Scan(&used)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query rename quota", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if used >= maxRenameAttempts {
		middleware.ErrorResponse(w, http.StatusConflict, "not eligible: rename quota exhausted")
		return
	}

	var hasPending bool
	err = h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM rename_requests WHERE user_id = $1 AND status = 'PENDING')
	`, userID).Scan(&hasPending)
	if err != nil {
		slog.Error("failed to query pending renames", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if hasPending {
		middleware.ErrorResponse(w, http.StatusConflict, "a rename request is already pending")
		return
	}

	taken, err := h.handleInUse(req.NewHandle, "")
	if err != nil {
		slog.Error("failed to check handle", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "handle already in use")
		return
	}

	requestID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate request ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to request rename")
		return
	}

	now := nowUnix()
	_, err = h.db.Exec(`
		INSERT INTO rename_requests (id, user_id, old_handle, new_handle, status, created_at)
		VALUES ($1, $2, $3, $4, 'PENDING', $5)
	`, requestID, userID, oldHandle, req.NewHandle, now)
	if err != nil {
		slog.Error("failed to insert rename request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to request rename")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO user_limits (user_id, rename_attempts_used, duel_cooldown_until)
		VALUES ($1, 1, 0)
		ON CONFLICT (user_id) DO UPDATE SET rename_attempts_used = user_limits.rename_attempts_used + 1
	`, userID)
	if err != nil {
		slog.Error("failed to bump rename quota", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to request rename")
		return
	}

	slog.Info("rename requested", "request_id", requestID, "user_id", userID, "new_handle", req.NewHandle)

	middleware.JSONResponse(w, http.StatusCreated, models.RenameResponse{
		RequestID:    requestID,
		Status:       models.RenamePending,
		AttemptsLeft: maxRenameAttempts - used - 1,
	})
}

// ApproveRename handles POST /rename/{id}/approve (moderator).
func (h *RenameHandler) ApproveRename(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r, h.cfg) {
		return
	}
	requestID := r.PathValue("id")

	rec, err := h.loadRequest(requestID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	}
	if err != nil {
		slog.Error("failed to query rename request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if rec.Status != models.RenamePending {
		middleware.ErrorResponse(w, http.StatusConflict, "already processed")
		return
	}

	// The handle may have been taken between request and approval. The
	// request's own reservation does not count.
	taken, err := h.handleInUse(rec.NewHandle, requestID)
	if err != nil {
		slog.Error("failed to check handle", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "handle no longer available")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE rename_requests SET status = 'APPROVED', resolved_at = $1
		WHERE id = $2 AND status = 'PENDING'
	`, nowUnix(), requestID)
	if err != nil {
		slog.Error("failed to approve rename", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "already processed")
		return
	}

	if _, err := tx.Exec(`UPDATE users SET handle = $1 WHERE id = $2`, rec.NewHandle, rec.UserID); err != nil {
		slog.Error("failed to apply handle", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit rename", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("rename approved", "request_id", requestID, "user_id", rec.UserID, "new_handle", rec.NewHandle)

	middleware.JSONResponse(w, http.StatusOK, models.RenameResponse{
		RequestID: requestID,
		Status:    models.RenameApproved,
	})
}

// DeclineRename handles POST /rename/{id}/decline (moderator).
func (h *RenameHandler) DeclineRename(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r, h.cfg) {
		return
	}
	requestID := r.PathValue("id")

	if _, err := h.loadRequest(requestID); err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	} else if err != nil {
		slog.Error("failed to query rename request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	res, err := h.db.Exec(`
		UPDATE rename_requests SET status = 'DECLINED', resolved_at = $1
		WHERE id = $2 AND status = 'PENDING'
	`, nowUnix(), requestID)
	if err != nil {
		slog.Error("failed to decline rename", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "already processed")
		return
	}

	slog.Info("rename declined", "request_id", requestID)

	middleware.JSONResponse(w, http.StatusOK, models.RenameResponse{
		RequestID: requestID,
		Status:    models.RenameDeclined,
	})
}

func (h *RenameHandler) loadRequest(requestID string) (models.RenameRecord, error) {
	var rec models.RenameRecord
	err := h.db.QueryRow(`
		SELECT id, user_id, old_handle, new_handle, status, created_at
		FROM rename_requests WHERE id = $1
	`, requestID).Scan(&rec.ID, &rec.UserID, &rec.OldHandle, &rec.NewHandle, &rec.Status, &rec.CreatedAt)
	return rec, err
}

// handleInUse reports whether a handle is held by any user or reserved
// by a pending rename other than excludeRequestID.
func (h *RenameHandler) handleInUse(handle, excludeRequestID string) (bool, error) {
	var taken bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM users WHERE handle = $1)
		    OR EXISTS(SELECT 1 FROM rename_requests
		              WHERE new_handle = $2 AND status = 'PENDING' AND id != $3)
	`, handle, handle, excludeRequestID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("handle lookup: %w", err)
	}
	return taken, nil
}
