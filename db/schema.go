// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// All timestamps are unix seconds stored as integers so the same DDL and
// queries run on both SQLite and PostgreSQL. A zero timestamp means
// "not set".
const schema = `
-- Travelers in the access queue
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    handle TEXT UNIQUE NOT NULL,
    points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
    created_at INTEGER NOT NULL
);

-- Decaying engagement score, one row per user
CREATE TABLE IF NOT EXISTS activity (
    user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    score REAL NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

-- Data packets pushed to travelers
CREATE TABLE IF NOT EXISTS anomalies (
    id TEXT PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    kind TEXT NOT NULL CHECK (kind IN ('S', 'NOCLASS')),
    payload TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('NEW', 'FIXED', 'DECRYPTED', 'EXPIRED')),
    created_at INTEGER NOT NULL,
    fixed_at INTEGER NOT NULL DEFAULT 0,
    decrypted_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_anomalies_user_status ON anomalies(user_id, status);

-- Class S payload pool
CREATE TABLE IF NOT EXISTS rare_assets (
    id TEXT PRIMARY KEY,
    asset_ref TEXT UNIQUE NOT NULL,
    added_at INTEGER NOT NULL
);

-- Position-swap duels
CREATE TABLE IF NOT EXISTS duels (
    id TEXT PRIMARY KEY,
    challenger_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    target_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status TEXT NOT NULL CHECK (status IN ('PENDING', 'DONE', 'DECLINED', 'EXPIRED')),
    winner_id BIGINT,
    created_at INTEGER NOT NULL,
    resolved_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_duels_target_status ON duels(target_id, status);

-- Moderated handle changes
CREATE TABLE IF NOT EXISTS rename_requests (
    id TEXT PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    old_handle TEXT NOT NULL,
    new_handle TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'DECLINED')),
    created_at INTEGER NOT NULL,
    resolved_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rename_requests_user_status ON rename_requests(user_id, status);

-- Per-user quotas and throttles
CREATE TABLE IF NOT EXISTS user_limits (
    user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    rename_attempts_used INTEGER NOT NULL DEFAULT 0,
    duel_cooldown_until INTEGER NOT NULL DEFAULT 0
);
`
