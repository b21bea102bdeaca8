// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math"
	"testing"
	"time"

	"github.com/nezproject/edenqueue/testutil"
)

const dayHalfLife = 24 * 3600.0

func TestDecayScoreHalvesPerHalfLife(t *testing.T) {
	const base = int64(1000)

	got := decayScore(100, base, base+24*3600, dayHalfLife)
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("Expected 50 after one half-life, got %f", got)
	}

	got = decayScore(100, base, base+48*3600, dayHalfLife)
	if math.Abs(got-25) > 1e-9 {
		t.Errorf("Expected 25 after two half-lives, got %f", got)
	}
}

func TestDecayScoreEdgeCases(t *testing.T) {
	if got := decayScore(100, 500, 500, dayHalfLife); got != 100 {
		t.Errorf("Zero elapsed must not decay, got %f", got)
	}
	if got := decayScore(0, 500, 1000, dayHalfLife); got != 0 {
		t.Errorf("Zero score stays zero, got %f", got)
	}
	if got := decayScore(100, 0, 1000, dayHalfLife); got != 0 {
		t.Errorf("Unset updated_at yields zero, got %f", got)
	}
	// Clock skew: a future updated_at must not inflate the score.
	if got := decayScore(100, 2000, 1000, dayHalfLife); got != 100 {
		t.Errorf("Negative elapsed must not amplify, got %f", got)
	}
}

func TestDecayScoreMonotonic(t *testing.T) {
	const base = int64(1000)
	prev := math.Inf(1)
	for _, elapsed := range []int64{0, 3600, 86400, 7 * 86400, 30 * 86400} {
		got := decayScore(64, base, base+elapsed, dayHalfLife)
		if got > prev {
			t.Errorf("Decay not monotonic at elapsed=%d: %f > %f", elapsed, got, prev)
		}
		if got <= 0 {
			t.Errorf("Decayed score must stay positive at elapsed=%d, got %f", elapsed, got)
		}
		prev = got
	}
}

func TestRecordActivityInsertsAndFolds(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	now := time.Now().Unix()
	testutil.CreateTestUser(t, conn, 1, "traveler", 0, now-1000)

	if err := recordActivity(conn, 1, 10, now-dayHalfLife, dayHalfLife); err != nil {
		t.Fatalf("recordActivity failed: %v", err)
	}

	// One half-life later the stored 10 decays to 5, then 10 more land.
	if err := recordActivity(conn, 1, 10, now, dayHalfLife); err != nil {
		t.Fatalf("recordActivity failed: %v", err)
	}

	score, updatedAt, err := readActivity(conn, 1, now, dayHalfLife)
	if err != nil {
		t.Fatalf("readActivity failed: %v", err)
	}
	if math.Abs(score-15) > 1e-6 {
		t.Errorf("Expected folded score 15, got %f", score)
	}
	if updatedAt != now {
		t.Errorf("Expected updated_at %d, got %d", now, updatedAt)
	}
}

func TestReadActivityMissingRow(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	score, updatedAt, err := readActivity(conn, 99, time.Now().Unix(), dayHalfLife)
	if err != nil {
		t.Fatalf("readActivity failed: %v", err)
	}
	if score != 0 || updatedAt != 0 {
		t.Errorf("Expected zeros for missing row, got %f/%d", score, updatedAt)
	}
}
