// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/rankcache"
)

type AnomalyHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	notify Notifier
	mirror *rankcache.Mirror
}

func NewAnomalyHandler(db *sql.DB, cfg cliparse.Config, notify Notifier, mirror *rankcache.Mirror) *AnomalyHandler {
	return &AnomalyHandler{db: db, cfg: cfg, notify: notify, mirror: mirror}
}

// confirmReward maps fix latency to points. Shorter elapsed, higher
// reward.
func confirmReward(elapsedSec int64) int {
	switch {
	case elapsedSec < 10:
		return 8
	case elapsedSec < 30:
		return 5
	case elapsedSec < 60:
		return 3
	default:
		return 2
	}
}

// revealReward maps the packet kind to its decrypt reward.
func revealReward(kind string) int {
	if kind == models.KindClassS {
		return 5
	}
	return 3
}

// createPacket inserts a NEW packet for the user, first forcing any
// active (NEW or FIXED) packet into EXPIRED so at most one packet per
// user is ever non-terminal.
func createPacket(db *sql.DB, userID int64, kind, payload string, now int64) (string, error) {
	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE anomalies SET status = 'EXPIRED'
		WHERE user_id = $1 AND status IN ('NEW', 'FIXED')
	`, userID)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO anomalies (id, user_id, kind, payload, status, created_at)
		VALUES ($1, $2, $3, $4, 'NEW', $5)
	`, id, userID, kind, payload, now)
	if err != nil {
		return "", err
	}

	return id, tx.Commit()
}

// activePacket returns the most recent NEW/FIXED packet, or nil.
func activePacket(db *sql.DB, userID int64) (*models.Packet, error) {
	var p models.Packet
	err := db.QueryRow(`
		SELECT id, user_id, kind, payload, status, created_at, fixed_at
		FROM anomalies
		WHERE user_id = $1 AND status IN ('NEW', 'FIXED')
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(&p.ID, &p.UserID, &p.Kind, &p.Payload, &p.Status, &p.CreatedAt, &p.FixedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPacket handles GET /packet
func (h *AnomalyHandler) GetPacket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := activePacket(h.db, userID)
	if err != nil {
		slog.Error("failed to query active packet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if p != nil && p.Status == models.AnomalyFixed {
		waited := nowUnix() - p.FixedAt
		if remaining := h.cfg.RevealDelaySec - waited; remaining > 0 {
			p.RemainingS = remaining
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.PacketResponse{Packet: p})
}

// ConfirmPacket handles POST /packets/{id}/confirm [NEW → FIXED].
// The reward is paid exactly once: it is tied to the conditional
// status='NEW' update, so a double-tap is a no-op.
func (h *AnomalyHandler) ConfirmPacket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	packetID := r.PathValue("id")

	var ownerID, createdAt int64
	err := h.db.QueryRow(`
		SELECT user_id, created_at FROM anomalies WHERE id = $1
	`, packetID).Scan(&ownerID, &createdAt)
	if err == sql.ErrNoRows || (err == nil && ownerID != userID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	}
	if err != nil {
		slog.Error("failed to query packet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := nowUnix()
	res, err := h.db.Exec(`
		UPDATE anomalies SET status = 'FIXED', fixed_at = $1
		WHERE id = $2 AND status = 'NEW'
	`, now, packetID)
	if err != nil {
		slog.Error("failed to fix packet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "already confirmed")
		return
	}

	reward := confirmReward(now - createdAt)
	points, err := applyReward(h.db, h.cfg, userID, reward, now)
	if err != nil {
		slog.Error("failed to apply confirm reward", "error", err, "user_id", userID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	refreshMirror(h.mirror, h.db, h.cfg)

	slog.Info("packet confirmed", "packet_id", packetID, "user_id", userID, "latency_sec", now-createdAt, "reward", reward)

	middleware.JSONResponse(w, http.StatusOK, models.ConfirmResponse{
		PacketID: packetID,
		Reward:   reward,
		Points:   points,
	})
}

// RevealPacket handles POST /packets/{id}/reveal [FIXED → DECRYPTED].
// Allowed only after the stabilization window; before that the caller is
// told how long is left.
func (h *AnomalyHandler) RevealPacket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	packetID := r.PathValue("id")

	var ownerID, fixedAt int64
	var kind, payload, status string
	err := h.db.QueryRow(`
		SELECT user_id, kind, payload, status, fixed_at
		FROM anomalies WHERE id = $1
	`, packetID).Scan(&ownerID, &kind, &payload, &status, &fixedAt)
	if err == sql.ErrNoRows || (err == nil && ownerID != userID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	}
	if err != nil {
		slog.Error("failed to query packet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.AnomalyFixed {
		middleware.ErrorResponse(w, http.StatusConflict, "not available now")
		return
	}

	now := nowUnix()
	if waited := now - fixedAt; waited < h.cfg.RevealDelaySec {
		remaining := h.cfg.RevealDelaySec - waited
		middleware.ErrorResponse(w, http.StatusConflict,
			fmt.Sprintf("stabilizing: %dm %ds remaining", remaining/60, remaining%60))
		return
	}

	res, err := h.db.Exec(`
		UPDATE anomalies SET status = 'DECRYPTED', decrypted_at = $1
		WHERE id = $2 AND status = 'FIXED'
	`, now, packetID)
	if err != nil {
		slog.Error("failed to decrypt packet", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "not available now")
		return
	}

	reward := revealReward(kind)
	points, err := applyReward(h.db, h.cfg, userID, reward, now)
	if err != nil {
		slog.Error("failed to apply reveal reward", "error", err, "user_id", userID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	refreshMirror(h.mirror, h.db, h.cfg)

	deliver(h.notify, userID, models.FeedMessage{
		Type:     "payload",
		Text:     payload,
		PacketID: packetID,
	})

	slog.Info("packet decrypted", "packet_id", packetID, "user_id", userID, "kind", kind, "reward", reward)

	middleware.JSONResponse(w, http.StatusOK, models.RevealResponse{
		PacketID: packetID,
		Kind:     kind,
		Payload:  payload,
		Reward:   reward,
		Points:   points,
	})
}
