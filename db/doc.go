// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema

CreateSchema creates all application tables (idempotent):

	if err := db.CreateSchema(dbConn); err != nil {
		// ...
	}

# Tables

  - users: traveler identity, raw point total, registration time
  - activity: exponentially decaying engagement score per user
  - anomalies: data packets and their lifecycle state
  - rare_assets: the Class S payload pool
  - duels: position-swap requests between queue neighbors
  - rename_requests: moderated handle changes
  - user_limits: rename quota and duel cooldown per user

# Portability

The same schema runs on SQLite (modernc.org/sqlite) and PostgreSQL
(lib/pq). Timestamps are unix seconds in INTEGER columns and are always
written explicitly, never defaulted by the database. A zero timestamp
means "not set".

# Status Fields

Lifecycle transitions are enforced with conditional updates against the
status column ("... WHERE status = 'NEW'"), so a row can only move along
its state machine once even under concurrent requests.

# Key Constraints

  - users.handle (unique)
  - rare_assets.asset_ref (unique)
  - anomalies(user_id, status) and duels(target_id, status) are indexed
    for the active-packet and pending-duel lookups
*/
package db
