// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/testutil"
)

func TestRarityChance(t *testing.T) {
	tests := []struct {
		name     string
		pos      int
		total    int
		expected float64
	}{
		{"front of a long queue", 1, 100, 0.15 + 0.99*0.6},
		{"back of the queue", 100, 100, 0.15},
		{"middle", 50, 100, 0.15 + 0.5*0.6},
		{"solo queue", 1, 1, 0.15},
		{"unranked sentinel clamps", 101, 100, 0.15},
		{"empty population", 1, 0, 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rarityChance(tt.pos, tt.total, 0.15, 0.6)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("rarityChance(%d, %d) = %f, expected %f", tt.pos, tt.total, got, tt.expected)
			}
		})
	}
}

func TestRarityChanceFrontBeatsBack(t *testing.T) {
	front := rarityChance(1, 50, 0.15, 0.6)
	back := rarityChance(50, 50, 0.15, 0.6)
	if front <= back {
		t.Errorf("Front chance %f should beat back chance %f", front, back)
	}
}

func TestChoosePayloadRareWithPool(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()
	cfg.RarityBase = 1.0
	cfg.RaritySpread = 0

	now := time.Now().Unix()
	if _, err := conn.Exec(`
		INSERT INTO rare_assets (id, asset_ref, added_at) VALUES ('a1', 'vault://shard-7', $1)
	`, now); err != nil {
		t.Fatalf("Failed to seed asset: %v", err)
	}

	kind, payload, err := choosePayload(conn, cfg, 1, 10)
	if err != nil {
		t.Fatalf("choosePayload failed: %v", err)
	}
	if kind != models.KindClassS {
		t.Errorf("Expected Class S with certain rarity, got %s", kind)
	}
	if payload != "vault://shard-7" {
		t.Errorf("Expected the pooled asset, got %q", payload)
	}
}

func TestChoosePayloadEmptyPoolFallsBack(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()
	cfg.RarityBase = 1.0
	cfg.RaritySpread = 0

	kind, payload, err := choosePayload(conn, cfg, 1, 10)
	if err != nil {
		t.Fatalf("choosePayload failed: %v", err)
	}
	if kind != models.KindNoClass {
		t.Errorf("Empty pool must fall back to NOCLASS, got %s", kind)
	}
	if !strings.Contains(payload, "[NOCLASS]") {
		t.Errorf("Expected a common payload, got %q", payload)
	}
}

func TestChoosePayloadNeverRareAtZeroChance(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()
	cfg.RarityBase = 0
	cfg.RaritySpread = 0

	now := time.Now().Unix()
	if _, err := conn.Exec(`
		INSERT INTO rare_assets (id, asset_ref, added_at) VALUES ('a1', 'vault://shard-7', $1)
	`, now); err != nil {
		t.Fatalf("Failed to seed asset: %v", err)
	}

	for i := 0; i < 20; i++ {
		kind, _, err := choosePayload(conn, cfg, 10, 10)
		if err != nil {
			t.Fatalf("choosePayload failed: %v", err)
		}
		if kind != models.KindNoClass {
			t.Fatalf("Zero chance must never yield Class S, got %s", kind)
		}
	}
}

func TestPickRareAssetEmpty(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ref, err := pickRareAsset(conn)
	if err != nil {
		t.Fatalf("pickRareAsset failed: %v", err)
	}
	if ref != "" {
		t.Errorf("Expected empty ref, got %q", ref)
	}
}
