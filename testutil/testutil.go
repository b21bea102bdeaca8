// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package testutil provides shared test helpers: an in-memory database
// with the full schema, seed functions, and small HTTP assertion
// wrappers.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/db"
	_ "modernc.org/sqlite"
)

var dbCounter atomic.Int64

// SetupTestDB opens a fresh in-memory SQLite database with the full
// schema applied. Each call gets its own database; it is torn down with
// the test.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:edenqueue_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Shared-cache in-memory databases vanish when the last connection
	// closes; a single pooled connection also sidesteps write locking.
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestConfig returns a config with the canonical gameplay defaults and
// a fixed moderator key.
func TestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                3419,
		DatabaseType:        "sqlite",
		ModeratorKey:        "test-moderator-key",
		TZOffset:            3,
		HalfLifeDays:        7,
		RevealDelaySec:      60,
		RarityBase:          0.15,
		RaritySpread:        0.6,
		DuelTTLSec:          600,
		DuelCooldownMinHour: 6,
		DuelCooldownMaxHour: 12,
		RankingMode:         cliparse.RankingBlend,
		BroadcastsPerDay:    3,
	}
}

// CreateTestUser inserts a traveler row directly.
func CreateTestUser(t *testing.T, conn *sql.DB, id int64, handle string, points int, createdAt int64) {
	t.Helper()
	_, err := conn.Exec(`
		INSERT INTO users (id, handle, points, created_at) VALUES ($1, $2, $3, $4)
	`, id, handle, points, createdAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
}

// SetActivity writes an activity row directly, bypassing decay.
func SetActivity(t *testing.T, conn *sql.DB, userID int64, score float64, updatedAt int64) {
	t.Helper()
	_, err := conn.Exec(`
		INSERT INTO activity (user_id, score, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET score = $4, updated_at = $5
	`, userID, score, updatedAt, score, updatedAt)
	if err != nil {
		t.Fatalf("Failed to set activity: %v", err)
	}
}

// CreateTestPacket inserts an anomaly packet row directly and returns
// its ID.
func CreateTestPacket(t *testing.T, conn *sql.DB, id string, userID int64, kind, payload, status string, createdAt, fixedAt int64) {
	t.Helper()
	_, err := conn.Exec(`
		INSERT INTO anomalies (id, user_id, kind, payload, status, created_at, fixed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, userID, kind, payload, status, createdAt, fixedAt)
	if err != nil {
		t.Fatalf("Failed to create test packet: %v", err)
	}
}

// MakeRequest runs a JSON request against a handler and returns the
// recorder. userID and moderatorKey are stamped as headers when
// non-empty.
func MakeRequest(t *testing.T, handler http.Handler, method, path, userID, moderatorKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if moderatorKey != "" {
		req.Header.Set("X-Moderator-Key", moderatorKey)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// AssertStatus fails the test when the recorded status differs.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Fatalf("Expected status %d, got %d (body: %s)", expected, w.Code, w.Body.String())
	}
}

// ParseJSON decodes the recorded body into out.
func ParseJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to parse response body %q: %v", w.Body.String(), err)
	}
}
