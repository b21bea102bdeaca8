// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/feed"
	"github.com/nezproject/edenqueue/handlers"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/rankcache"
)

// NewRouter builds the full route table. hub and mirror may be nil;
// without a hub no feed route is registered and pushes are skipped,
// without a mirror ranking changes simply are not mirrored.
func NewRouter(db *sql.DB, cfg cliparse.Config, hub *feed.Hub, mirror *rankcache.Mirror) *http.ServeMux {
	var notify handlers.Notifier
	if hub != nil {
		notify = hub
	}

	queue := handlers.NewQueueHandler(db, cfg, mirror)
	anomalies := handlers.NewAnomalyHandler(db, cfg, notify, mirror)
	duels := handlers.NewDuelHandler(db, cfg, notify, mirror)
	renames := handlers.NewRenameHandler(db, cfg)
	assets := handlers.NewAssetHandler(db, cfg)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", queue.Register)
	mux.HandleFunc("GET /status", queue.Status)
	mux.HandleFunc("GET /leaderboard", queue.Leaderboard)

	mux.HandleFunc("GET /packet", anomalies.GetPacket)
	mux.HandleFunc("POST /packets/{id}/confirm", anomalies.ConfirmPacket)
	mux.HandleFunc("POST /packets/{id}/reveal", anomalies.RevealPacket)

	mux.HandleFunc("POST /duels", duels.RequestDuel)
	mux.HandleFunc("GET /duels/{id}", duels.GetDuel)
	mux.HandleFunc("POST /duels/{id}/respond", duels.RespondDuel)

	mux.HandleFunc("POST /rename", renames.RequestRename)
	mux.HandleFunc("POST /rename/{id}/approve", renames.ApproveRename)
	mux.HandleFunc("POST /rename/{id}/decline", renames.DeclineRename)

	mux.HandleFunc("POST /assets", assets.AddAsset)
	mux.HandleFunc("POST /broadcast", anomalies.Broadcast)
	mux.HandleFunc("POST /broadcast/digest", anomalies.BroadcastDigest)

	if hub != nil {
		mux.HandleFunc("GET /ws/feed", hub.Handler)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, map[string]string{
			"service": "edenqueue",
			"notice":  "the queue does not move for those who ask",
		})
	})

	return mux
}
