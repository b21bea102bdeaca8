// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/testutil"
)

// recordingNotifier collects deliveries, failing for the users listed
// in offline.
type recordingNotifier struct {
	mu       sync.Mutex
	messages map[int64][]models.FeedMessage
	offline  map[int64]bool
}

func newRecordingNotifier(offline ...int64) *recordingNotifier {
	n := &recordingNotifier{
		messages: make(map[int64][]models.FeedMessage),
		offline:  make(map[int64]bool),
	}
	for _, id := range offline {
		n.offline[id] = true
	}
	return n
}

func (n *recordingNotifier) Deliver(userID int64, msg models.FeedMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.offline[userID] {
		return errors.New("not connected")
	}
	n.messages[userID] = append(n.messages[userID], msg)
	return nil
}

func (n *recordingNotifier) sent(userID int64) []models.FeedMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages[userID]
}

func TestPushPacketsCreatesOnePerTraveler(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	now := time.Now().Unix()
	testutil.CreateTestUser(t, conn, 1, "first", 50, now-5000)
	testutil.CreateTestUser(t, conn, 2, "second", 10, now-4000)

	notify := newRecordingNotifier()
	h := NewAnomalyHandler(conn, testutil.TestConfig(), notify, nil)

	out, err := h.PushPackets(context.Background())
	if err != nil {
		t.Fatalf("PushPackets failed: %v", err)
	}
	if out.Created != 2 || out.Delivered != 2 || out.Skipped != 0 {
		t.Errorf("Unexpected counts: %+v", out)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM anomalies WHERE status = 'NEW'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 NEW packets, got %d", count)
	}

	msgs := notify.sent(1)
	if len(msgs) != 1 || msgs[0].Type != "anomaly" || msgs[0].PacketID == "" {
		t.Errorf("Unexpected delivery: %+v", msgs)
	}
}

func TestPushPacketsSupersedesActive(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	now := time.Now().Unix()
	testutil.CreateTestUser(t, conn, 1, "first", 0, now-5000)
	testutil.CreateTestPacket(t, conn, "stale", 1, models.KindNoClass, "x", models.AnomalyNew, now-3600, 0)

	h := NewAnomalyHandler(conn, testutil.TestConfig(), newRecordingNotifier(), nil)
	if _, err := h.PushPackets(context.Background()); err != nil {
		t.Fatalf("PushPackets failed: %v", err)
	}

	if got := packetStatus(t, conn, "stale"); got != models.AnomalyExpired {
		t.Errorf("Prior packet should be EXPIRED, got %s", got)
	}

	var active int
	if err := conn.QueryRow(`
		SELECT COUNT(*) FROM anomalies WHERE user_id = 1 AND status IN ('NEW', 'FIXED')
	`).Scan(&active); err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Errorf("Expected exactly one active packet, got %d", active)
	}
}

func TestPushPacketsOfflineTravelersSkippedNotAborted(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	now := time.Now().Unix()
	testutil.CreateTestUser(t, conn, 1, "online", 10, now-5000)
	testutil.CreateTestUser(t, conn, 2, "offline", 5, now-4000)

	notify := newRecordingNotifier(2)
	h := NewAnomalyHandler(conn, testutil.TestConfig(), notify, nil)

	out, err := h.PushPackets(context.Background())
	if err != nil {
		t.Fatalf("PushPackets failed: %v", err)
	}
	// The packet is still created even when delivery fails.
	if out.Created != 2 || out.Delivered != 1 {
		t.Errorf("Unexpected counts: %+v", out)
	}
}

func TestPushPacketsEmptyPopulation(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	h := NewAnomalyHandler(conn, testutil.TestConfig(), newRecordingNotifier(), nil)

	out, err := h.PushPackets(context.Background())
	if err != nil {
		t.Fatalf("PushPackets failed: %v", err)
	}
	if out.Created != 0 || out.Delivered != 0 || out.Skipped != 0 {
		t.Errorf("Empty population must be a no-op, got %+v", out)
	}
}

func TestPushDigestSendsPositionCards(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	now := time.Now().Unix()
	testutil.CreateTestUser(t, conn, 1, "first", 50, now-5000)
	testutil.CreateTestUser(t, conn, 2, "second", 10, now-4000)

	notify := newRecordingNotifier(2)
	h := NewAnomalyHandler(conn, testutil.TestConfig(), notify, nil)

	out, err := h.PushDigest(context.Background())
	if err != nil {
		t.Fatalf("PushDigest failed: %v", err)
	}
	if out.Delivered != 1 || out.Skipped != 1 {
		t.Errorf("Unexpected counts: %+v", out)
	}

	msgs := notify.sent(1)
	if len(msgs) != 1 || msgs[0].Type != "digest" {
		t.Fatalf("Unexpected digest: %+v", msgs)
	}

	// Read-only: no packets created.
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM anomalies`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Digest must not create packets, got %d", count)
	}
}

func TestBroadcastEndpointModeratorOnly(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	h := NewAnomalyHandler(conn, testutil.TestConfig(), nil, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /broadcast", h.Broadcast)
	mux.HandleFunc("POST /broadcast/digest", h.BroadcastDigest)

	w := testutil.MakeRequest(t, mux, "POST", "/broadcast", "", "", nil)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = testutil.MakeRequest(t, mux, "POST", "/broadcast/digest", "", "wrong", nil)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = testutil.MakeRequest(t, mux, "POST", "/broadcast", "", modKey, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
}
