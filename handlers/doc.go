// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for the Eden queue service.

Handlers are grouped by concern:

  - QueueHandler: registration, position status, leaderboard
  - AnomalyHandler: anomaly packet lifecycle and broadcasts
  - DuelHandler: position duels between queue neighbors
  - RenameHandler: moderated handle changes
  - AssetHandler: the rare payload pool

Anomaly packets move through a one-way lifecycle:

	NEW -> FIXED -> DECRYPTED
	  \------\---> EXPIRED

Every transition is a conditional UPDATE keyed on the current status;
the affected row count decides whether rewards and notifications fire,
so a replayed confirm or reveal never pays twice.

Duels follow the same pattern:

	PENDING -> DONE | DECLINED | EXPIRED

Ranking is computed on read from points and decayed activity (see
ranking.go); no ranking state is stored beyond the optional Redis
mirror, which is rebuilt best-effort after any points change.
*/
package handlers
