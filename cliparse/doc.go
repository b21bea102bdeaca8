// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3419)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - ModeratorKey: Secret for the moderation endpoints (required)
  - RedisAddr: Redis address for the leaderboard mirror (optional)
  - TZOffset: Hours added to UTC for the daily broadcast schedule

# Gameplay Tuning

The engine's timers and tables are configurable; the defaults are the
canonical values:

	-half-life      7      activity half-life, days
	-reveal-delay   60     stabilization window, seconds
	-rarity-base    0.15   base Class S chance
	-rarity-spread  0.6    extra Class S chance at position 1
	-duel-ttl       600    pending duel TTL, seconds
	-cooldown-min   6      duel cooldown lower bound, hours
	-cooldown-max   12     duel cooldown upper bound, hours
	-ranking        blend  "blend" or the older "simple" ordering
	-broadcasts     3      anomaly broadcasts per day

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	MODERATOR_KEY  → -moderator-key
	REDIS_ADDR     → -redis
	RANKING_MODE   → -ranking

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing or a knob is
out of range:

  - DATABASE_URL must be provided
  - MODERATOR_KEY must be provided
  - DATABASE_TYPE and RANKING_MODE must name known modes
*/
package cliparse
