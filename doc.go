// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Edenqueue runs the waiting-queue game: travelers register for a place
in line, receive anomaly packets on a daily schedule, confirm and
decrypt them for points, and fight position duels with the neighbor
directly ahead. Queue order is computed from points and decayed
activity; a moderator key gates renames, the rare payload pool, and
manual broadcasts.

Usage:

	edenqueue -d <database-url> [-t sqlite|postgres] [-p port]

Secrets and addresses may also come from the environment: DATABASE_URL,
DATABASE_TYPE, MODERATOR_KEY, REDIS_ADDR, PORT, RANKING_MODE. A .env
file in the working directory is loaded if present.
*/
package main
