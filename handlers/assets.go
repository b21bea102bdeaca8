// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/models"
)

type AssetHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAssetHandler(db *sql.DB, cfg cliparse.Config) *AssetHandler {
	return &AssetHandler{db: db, cfg: cfg}
}

// AddAsset handles POST /assets (moderator). Re-adding a known asset
// reference is a no-op reported as inserted=false.
func (h *AssetHandler) AddAsset(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r, h.cfg) {
		return
	}

	var req models.AddAssetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.AssetRef = strings.TrimSpace(req.AssetRef)
	if req.AssetRef == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "asset_ref is required")
		return
	}

	res, err := h.db.Exec(`
		INSERT INTO rare_assets (id, asset_ref, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_ref) DO NOTHING
	`, uuid.NewString(), req.AssetRef, nowUnix())
	if err != nil {
		slog.Error("failed to insert asset", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add asset")
		return
	}

	inserted, _ := res.RowsAffected()
	if inserted > 0 {
		slog.Info("rare asset added", "asset_ref", req.AssetRef)
	}

	middleware.JSONResponse(w, http.StatusOK, models.AddAssetResponse{
		AssetRef: req.AssetRef,
		Inserted: inserted > 0,
	})
}
