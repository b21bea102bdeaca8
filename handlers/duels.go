// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"

	"github.com/nezproject/edenqueue/auth"
	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/rankcache"
)

type DuelHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	notify Notifier
	mirror *rankcache.Mirror
}

func NewDuelHandler(db *sql.DB, cfg cliparse.Config, notify Notifier, mirror *rankcache.Mirror) *DuelHandler {
	return &DuelHandler{db: db, cfg: cfg, notify: notify, mirror: mirror}
}

// RequestDuel handles POST /duels. The target is always the challenger's
// immediate neighbor above at request time; both parties are placed
// under a randomized cooldown regardless of the eventual outcome.
func (h *DuelHandler) RequestDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	now := nowUnix()

	var cooldownUntil int64
	err := h.db.QueryRow(`
		SELECT duel_cooldown_until FROM user_limits WHERE user_id = $1
	`, userID).Scan(&cooldownUntil)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query cooldown", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if cooldownUntil > now {
		remaining := cooldownUntil - now
		middleware.ErrorResponse(w, http.StatusConflict,
			fmt.Sprintf("not eligible: cooldown active for another %dh %dm", remaining/3600, remaining%3600/60))
		return
	}

	ranking, err := loadRanking(h.db, h.cfg, now)
	if err != nil {
		slog.Error("failed to load ranking", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	pos, _ := queuePosition(ranking, userID)
	if pos > len(ranking) {
		middleware.ErrorResponse(w, http.StatusNotFound, "not registered")
		return
	}
	target := neighborAbove(ranking, userID)
	if target == nil {
		middleware.ErrorResponse(w, http.StatusConflict, "not eligible: no neighbor above")
		return
	}

	duelID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate duel ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create duel")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO duels (id, challenger_id, target_id, status, created_at)
		VALUES ($1, $2, $3, 'PENDING', $4)
	`, duelID, userID, target.ID, now)
	if err != nil {
		slog.Error("failed to insert duel", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create duel")
		return
	}

	// Cooldown throttles duel frequency network-wide, so it lands on
	// both sides at request time, not at resolution.
	cooldown := now + h.randomCooldownSec()
	for _, id := range []int64{userID, target.ID} {
		if err := setDuelCooldown(h.db, id, cooldown); err != nil {
			slog.Error("failed to set cooldown", "error", err, "user_id", id)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create duel")
			return
		}
	}

	deliver(h.notify, target.ID, models.FeedMessage{
		Type:   "duel",
		Text:   "QUOTA SHIFT REQUEST: the traveler below challenges your position. Accept or decline.",
		DuelID: duelID,
	})

	slog.Info("duel requested", "duel_id", duelID, "challenger_id", userID, "target_id", target.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.RequestDuelResponse{
		DuelID:        duelID,
		TargetHandle:  target.Handle,
		ExpiresAt:     now + h.cfg.DuelTTLSec,
		CooldownUntil: cooldown,
	})
}

// GetDuel handles GET /duels/{id}. Any access lazily expires a PENDING
// request past its TTL.
func (h *DuelHandler) GetDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	duelID := r.PathValue("id")

	h.expireIfStale(duelID)

	d, challengerHandle, targetHandle, err := h.loadDuel(duelID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	}
	if err != nil {
		slog.Error("failed to query duel", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if userID != d.ChallengerID && userID != d.TargetID {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	}

	resp := models.DuelStateResponse{
		DuelID:     d.ID,
		Status:     d.Status,
		Challenger: challengerHandle,
		Target:     targetHandle,
	}
	if d.WinnerID != nil {
		if *d.WinnerID == d.ChallengerID {
			resp.WinnerHandle = challengerHandle
		} else {
			resp.WinnerHandle = targetHandle
		}
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// RespondDuel handles POST /duels/{id}/respond. Only the designated
// target may act; accepting resolves by an unweighted coin flip.
func (h *DuelHandler) RespondDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	duelID := r.PathValue("id")

	var req models.RespondDuelRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.expireIfStale(duelID)

	d, _, _, err := h.loadDuel(duelID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "invalid request")
		return
	}
	if err != nil {
		slog.Error("failed to query duel", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if d.Status == models.DuelExpired {
		middleware.ErrorResponse(w, http.StatusConflict, "request expired")
		return
	}
	if d.Status != models.DuelPending {
		middleware.ErrorResponse(w, http.StatusConflict, "already processed")
		return
	}
	if userID != d.TargetID {
		middleware.ErrorResponse(w, http.StatusForbidden, "only the designated target may respond")
		return
	}

	now := nowUnix()

	if !req.Accept {
		res, err := h.db.Exec(`
			UPDATE duels SET status = 'DECLINED', resolved_at = $1
			WHERE id = $2 AND status = 'PENDING'
		`, now, duelID)
		if err != nil {
			slog.Error("failed to decline duel", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			middleware.ErrorResponse(w, http.StatusConflict, "already processed")
			return
		}

		deliver(h.notify, d.ChallengerID, models.FeedMessage{
			Type:   "duel",
			Text:   "Quota shift declined. Positions unchanged.",
			DuelID: duelID,
		})
		slog.Info("duel declined", "duel_id", duelID)
		h.writeDuelState(w, duelID)
		return
	}

	// Coin flip, then the conditional PENDING update gates the transfer
	// so a double-submitted accept resolves exactly once.
	winnerID, loserID := d.ChallengerID, d.TargetID
	if rand.IntN(2) == 1 {
		winnerID, loserID = d.TargetID, d.ChallengerID
	}

	res, err := h.db.Exec(`
		UPDATE duels SET status = 'DONE', winner_id = $1, resolved_at = $2
		WHERE id = $3 AND status = 'PENDING'
	`, winnerID, now, duelID)
	if err != nil {
		slog.Error("failed to resolve duel", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "already processed")
		return
	}

	if err := applyDuelTransfer(h.db, winnerID, loserID); err != nil {
		slog.Error("failed to apply duel transfer", "error", err, "duel_id", duelID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	refreshMirror(h.mirror, h.db, h.cfg)

	for _, id := range []int64{d.ChallengerID, d.TargetID} {
		text := "Quota shift resolved: you lost the flip."
		if id == winnerID {
			text = "Quota shift resolved: you won the flip."
		}
		deliver(h.notify, id, models.FeedMessage{Type: "duel", Text: text, DuelID: duelID})
	}

	slog.Info("duel resolved", "duel_id", duelID, "winner_id", winnerID)
	h.writeDuelState(w, duelID)
}

// applyDuelTransfer performs the one-rank swap. The winner's total is
// raised to the loser's prior total when below it and the loser drops
// one point under that level, floored at zero. A zero-zero pair cannot
// be separated by points, so their registration timestamps swap to flip
// the tie-break instead, and only when the winner is the later
// registrant.
func applyDuelTransfer(db *sql.DB, winnerID, loserID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var winnerPts, loserPts int
	var winnerCreated, loserCreated int64
	if err := tx.QueryRow(`SELECT points, created_at FROM users WHERE id = $1`, winnerID).
		Scan(&winnerPts, &winnerCreated); err != nil {
		return err
	}
	if err := tx.QueryRow(`SELECT points, created_at FROM users WHERE id = $1`, loserID).
		Scan(&loserPts, &loserCreated); err != nil {
		return err
	}

	switch {
	case winnerPts == 0 && loserPts == 0:
		if winnerCreated > loserCreated {
			if _, err := tx.Exec(`UPDATE users SET created_at = $1 WHERE id = $2`, loserCreated, winnerID); err != nil {
				return err
			}
			if _, err := tx.Exec(`UPDATE users SET created_at = $1 WHERE id = $2`, winnerCreated, loserID); err != nil {
				return err
			}
		}
	case winnerPts <= loserPts:
		newLoser := loserPts - 1
		if newLoser < 0 {
			newLoser = 0
		}
		if _, err := tx.Exec(`UPDATE users SET points = $1 WHERE id = $2`, loserPts, winnerID); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE users SET points = $1 WHERE id = $2`, newLoser, loserID); err != nil {
			return err
		}
	default:
		// Winner already ranks above on points; nothing to move.
	}

	return tx.Commit()
}

// expireIfStale transitions a PENDING duel past its TTL to EXPIRED and
// tells both sides. No score change.
func (h *DuelHandler) expireIfStale(duelID string) {
	now := nowUnix()
	res, err := h.db.Exec(`
		UPDATE duels SET status = 'EXPIRED', resolved_at = $1
		WHERE id = $2 AND status = 'PENDING' AND created_at <= $3
	`, now, duelID, now-h.cfg.DuelTTLSec)
	if err != nil {
		slog.Error("failed to expire duel", "error", err, "duel_id", duelID)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return
	}

	var challengerID, targetID int64
	if err := h.db.QueryRow(`
		SELECT challenger_id, target_id FROM duels WHERE id = $1
	`, duelID).Scan(&challengerID, &targetID); err != nil {
		return
	}
	for _, id := range []int64{challengerID, targetID} {
		deliver(h.notify, id, models.FeedMessage{
			Type:   "duel",
			Text:   "Quota shift request expired. Positions unchanged.",
			DuelID: duelID,
		})
	}
	slog.Info("duel expired", "duel_id", duelID)
}

func (h *DuelHandler) loadDuel(duelID string) (models.Duel, string, string, error) {
	var d models.Duel
	var winnerID sql.NullInt64
	var challengerHandle, targetHandle string
	err := h.db.QueryRow(`
		SELECT d.id, d.challenger_id, d.target_id, d.status, d.winner_id,
		       d.created_at, d.resolved_at, c.handle, t.handle
		FROM duels d
		JOIN users c ON c.id = d.challenger_id
		JOIN users t ON t.id = d.target_id
		WHERE d.id = $1
	`, duelID).Scan(&d.ID, &d.ChallengerID, &d.TargetID, &d.Status, &winnerID,
		&d.CreatedAt, &d.ResolvedAt, &challengerHandle, &targetHandle)
	if err != nil {
		return d, "", "", err
	}
	if winnerID.Valid {
		d.WinnerID = &winnerID.Int64
	}
	return d, challengerHandle, targetHandle, nil
}

func (h *DuelHandler) writeDuelState(w http.ResponseWriter, duelID string) {
	d, challengerHandle, targetHandle, err := h.loadDuel(duelID)
	if err != nil {
		slog.Error("failed to reload duel", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp := models.DuelStateResponse{
		DuelID:     d.ID,
		Status:     d.Status,
		Challenger: challengerHandle,
		Target:     targetHandle,
	}
	if d.WinnerID != nil {
		if *d.WinnerID == d.ChallengerID {
			resp.WinnerHandle = challengerHandle
		} else {
			resp.WinnerHandle = targetHandle
		}
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *DuelHandler) randomCooldownSec() int64 {
	minSec := int64(h.cfg.DuelCooldownMinHour) * 3600
	maxSec := int64(h.cfg.DuelCooldownMaxHour) * 3600
	if maxSec <= minSec {
		return minSec
	}
	return minSec + rand.Int64N(maxSec-minSec+1)
}

// setDuelCooldown upserts the user's cooldown in user_limits.
func setDuelCooldown(db *sql.DB, userID, until int64) error {
	_, err := db.Exec(`
		INSERT INTO user_limits (user_id, rename_attempts_used, duel_cooldown_until)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET duel_cooldown_until = EXCLUDED.duel_cooldown_until
	`, userID, until)
	return err
}
