// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/db"
	"github.com/nezproject/edenqueue/feed"
	"github.com/nezproject/edenqueue/handlers"
	"github.com/nezproject/edenqueue/middleware"
	"github.com/nezproject/edenqueue/rankcache"
	"github.com/nezproject/edenqueue/router"
	"github.com/nezproject/edenqueue/scheduler"
)

func main() {
	// Load .env if present (dev convenience, ignored in production)
	_ = godotenv.Load()

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("failed to parse configuration", "error", err)
		os.Exit(1)
	}

	driver := "sqlite"
	if cfg.DatabaseType == "postgres" {
		driver = "postgres"
	}
	conn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		slog.Error("failed to reach database", "error", err)
		os.Exit(1)
	}
	if err := db.CreateSchema(conn); err != nil {
		slog.Error("failed to create schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "type", cfg.DatabaseType)

	var mirror *rankcache.Mirror
	if cfg.RedisAddr != "" {
		mirror, err = rankcache.New(cfg.RedisAddr)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
		slog.Info("ranking mirror connected", "addr", cfg.RedisAddr)
	}

	hub := feed.NewHub()
	mux := router.NewRouter(conn, cfg, hub, mirror)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	anomalies := handlers.NewAnomalyHandler(conn, cfg, hub, mirror)
	go scheduler.New(cfg, anomalies).Run(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: middleware.CORS(middleware.WithLogging(mux.ServeHTTP)),
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
