// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	ModeratorKey string
	RedisAddr    string
	TZOffset     int

	// Gameplay tuning. Defaults reproduce the canonical behavior; the
	// knobs exist so earlier reward tables remain reachable.
	HalfLifeDays        float64
	RevealDelaySec      int64
	RarityBase          float64
	RaritySpread        float64
	DuelTTLSec          int64
	DuelCooldownMinHour int
	DuelCooldownMaxHour int
	RankingMode         string
	BroadcastsPerDay    int
}

// Ranking mode constants
const (
	RankingBlend  = "blend"
	RankingSimple = "simple"
)

// ParseFlags validates flags and fills defaults
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("edenqueue", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for the leaderboard mirror (optional)")
	fs.IntVar(&cfg.TZOffset, "tz", 3, "Hours added to UTC for the daily schedule")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.ModeratorKey, "moderator-key", "", "Moderator API key (prefer env)")

	// Tuning
	fs.Float64Var(&cfg.HalfLifeDays, "half-life", 7, "Activity score half-life in days")
	fs.Int64Var(&cfg.RevealDelaySec, "reveal-delay", 60, "Stabilization window before reveal, seconds")
	fs.Float64Var(&cfg.RarityBase, "rarity-base", 0.15, "Base chance of a Class S packet")
	fs.Float64Var(&cfg.RaritySpread, "rarity-spread", 0.6, "Extra Class S chance at the top of the queue")
	fs.Int64Var(&cfg.DuelTTLSec, "duel-ttl", 600, "Pending duel time-to-live, seconds")
	fs.IntVar(&cfg.DuelCooldownMinHour, "cooldown-min", 6, "Minimum duel cooldown, hours")
	fs.IntVar(&cfg.DuelCooldownMaxHour, "cooldown-max", 12, "Maximum duel cooldown, hours")
	fs.StringVar(&cfg.RankingMode, "ranking", "", "Ranking mode (blend or simple)")
	fs.IntVar(&cfg.BroadcastsPerDay, "broadcasts", 3, "Anomaly broadcasts per day")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3419 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unknown database type %q (want sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}

	// Secrets - MUST be provided
	if cfg.ModeratorKey == "" {
		cfg.ModeratorKey = os.Getenv("MODERATOR_KEY")
	}
	if cfg.ModeratorKey == "" {
		return Config{}, errors.New("MODERATOR_KEY required")
	}

	if cfg.RankingMode == "" {
		cfg.RankingMode = os.Getenv("RANKING_MODE")
		if cfg.RankingMode == "" {
			cfg.RankingMode = RankingBlend
		}
	}
	if cfg.RankingMode != RankingBlend && cfg.RankingMode != RankingSimple {
		return Config{}, fmt.Errorf("unknown ranking mode %q (want blend or simple)", cfg.RankingMode)
	}

	if cfg.HalfLifeDays <= 0 {
		return Config{}, errors.New("half-life must be positive")
	}
	if cfg.DuelCooldownMinHour > cfg.DuelCooldownMaxHour {
		return Config{}, errors.New("cooldown-min must not exceed cooldown-max")
	}
	if cfg.BroadcastsPerDay < 1 || cfg.BroadcastsPerDay > 12 {
		return Config{}, errors.New("broadcasts must be between 1 and 12")
	}

	return cfg, nil
}

// HalfLifeSeconds returns the activity half-life as seconds.
func (c Config) HalfLifeSeconds() float64 {
	return c.HalfLifeDays * 24 * 3600
}
