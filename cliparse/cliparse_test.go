// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
)

func TestParseFlags_EnvVars(t *testing.T) {
	// Set env vars
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "file:test.db")
	os.Setenv("MODERATOR_KEY", "test-key")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default database type sqlite, got %s", cfg.DatabaseType)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-moderator-key", "k1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-moderator-key", "k1"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HalfLifeDays != 7 {
		t.Errorf("expected half-life 7, got %v", cfg.HalfLifeDays)
	}
	if cfg.RevealDelaySec != 60 {
		t.Errorf("expected reveal delay 60, got %d", cfg.RevealDelaySec)
	}
	if cfg.RarityBase != 0.15 || cfg.RaritySpread != 0.6 {
		t.Errorf("unexpected rarity defaults: %v/%v", cfg.RarityBase, cfg.RaritySpread)
	}
	if cfg.DuelTTLSec != 600 {
		t.Errorf("expected duel TTL 600, got %d", cfg.DuelTTLSec)
	}
	if cfg.DuelCooldownMinHour != 6 || cfg.DuelCooldownMaxHour != 12 {
		t.Errorf("unexpected cooldown defaults: %d/%d", cfg.DuelCooldownMinHour, cfg.DuelCooldownMaxHour)
	}
	if cfg.RankingMode != RankingBlend {
		t.Errorf("expected blend ranking, got %s", cfg.RankingMode)
	}
	if cfg.BroadcastsPerDay != 3 {
		t.Errorf("expected 3 broadcasts, got %d", cfg.BroadcastsPerDay)
	}
}

func TestParseFlags_MissingDatabase(t *testing.T) {
	defer os.Clearenv()

	_, err := ParseFlags([]string{"-moderator-key", "k1"})
	if err == nil {
		t.Fatal("expected error for missing database URL")
	}
}

func TestParseFlags_MissingModeratorKey(t *testing.T) {
	defer os.Clearenv()

	_, err := ParseFlags([]string{"-d", "file:test.db"})
	if err == nil {
		t.Fatal("expected error for missing moderator key")
	}
}

func TestParseFlags_BadModes(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name string
		args []string
	}{
		{"bad database type", []string{"-d", "x", "-moderator-key", "k", "-t", "mysql"}},
		{"bad ranking mode", []string{"-d", "x", "-moderator-key", "k", "-ranking", "elo"}},
		{"inverted cooldown range", []string{"-d", "x", "-moderator-key", "k", "-cooldown-min", "13"}},
		{"zero half-life", []string{"-d", "x", "-moderator-key", "k", "-half-life", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFlags(tt.args); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestHalfLifeSeconds(t *testing.T) {
	cfg := Config{HalfLifeDays: 7}
	if got := cfg.HalfLifeSeconds(); got != 7*24*3600 {
		t.Errorf("expected %d seconds, got %v", 7*24*3600, got)
	}
}
