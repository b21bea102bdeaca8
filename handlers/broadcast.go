// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
)

// PushPackets creates one packet per registered traveler and notifies
// them. The loop is sequential and best-effort: a delivery failure for
// one user never aborts the batch. A missing population is a no-op.
func (h *AnomalyHandler) PushPackets(ctx context.Context) (models.BroadcastResponse, error) {
	var out models.BroadcastResponse

	now := nowUnix()
	ranking, err := loadRanking(h.db, h.cfg, now)
	if err != nil {
		return out, fmt.Errorf("broadcast: ranking failed: %w", err)
	}
	if len(ranking) == 0 {
		return out, nil
	}

	total := len(ranking)
	for i, u := range ranking {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		kind, payload, err := choosePayload(h.db, h.cfg, i+1, total)
		if err != nil {
			slog.Warn("broadcast: payload selection failed", "user_id", u.ID, "error", err)
			out.Skipped++
			continue
		}

		packetID, err := createPacket(h.db, u.ID, kind, payload, now)
		if err != nil {
			slog.Warn("broadcast: packet creation failed", "user_id", u.ID, "error", err)
			out.Skipped++
			continue
		}
		out.Created++

		ok := deliver(h.notify, u.ID, models.FeedMessage{
			Type:     "anomaly",
			Text:     "ANOMALY DETECTED. Immediate fixation required. Faster fixation, higher queue priority.",
			PacketID: packetID,
		})
		if ok {
			out.Delivered++
		}
	}

	slog.Info("packet broadcast complete", "created", out.Created, "delivered", out.Delivered, "skipped", out.Skipped)
	return out, nil
}

// PushDigest sends every connected traveler their current position card.
// Read-only; undeliverable users are skipped.
func (h *AnomalyHandler) PushDigest(ctx context.Context) (models.BroadcastResponse, error) {
	var out models.BroadcastResponse

	ranking, err := loadRanking(h.db, h.cfg, nowUnix())
	if err != nil {
		return out, fmt.Errorf("digest: ranking failed: %w", err)
	}

	total := len(ranking)
	for i, u := range ranking {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		ok := deliver(h.notify, u.ID, models.FeedMessage{
			Type: "digest",
			Text: fmt.Sprintf("QUEUE DIGEST // position %d/%d, %d pts. Access controlled by NEZ Project.", i+1, total, u.Points),
		})
		if ok {
			out.Delivered++
		} else {
			out.Skipped++
		}
	}

	return out, nil
}

// Broadcast handles POST /broadcast (moderator): manual packet push.
func (h *AnomalyHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r, h.cfg) {
		return
	}

	out, err := h.PushPackets(r.Context())
	if err != nil {
		slog.Error("broadcast failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "broadcast failed")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, out)
}

// BroadcastDigest handles POST /broadcast/digest (moderator).
func (h *AnomalyHandler) BroadcastDigest(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r, h.cfg) {
		return
	}

	out, err := h.PushDigest(r.Context())
	if err != nil {
		slog.Error("digest broadcast failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "broadcast failed")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, out)
}
